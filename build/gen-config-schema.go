// gen-config-schema writes the JSON schema of the plugin options, reflected from
// the config.Root type, to the given path ("-" for stdout).
package main

import (
	"log"
	"os"

	"github.com/EricRabil/vue-cli/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s path/to/schema.json|-", os.Args[0])
	}
	bs, err := config.ReflectSchema()
	if err != nil {
		log.Fatalf("reflect schema: %v", err)
	}
	bs = append(bs, '\n')

	if os.Args[1] == "-" {
		if _, err := os.Stdout.Write(bs); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := os.WriteFile(os.Args[1], bs, 0o644); err != nil {
		log.Fatalf("write %s: %v", os.Args[1], err)
	}
}
