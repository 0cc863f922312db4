// vulkan-bindings generates Go bindings from the Vulkan API registry:
// type declarations, function-pointer aliases, per-feature command tables
// and the loader routines that fill them.
package main

import (
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/bsekura/vulkan-bindings/filter"
	"github.com/bsekura/vulkan-bindings/generator"
	"github.com/bsekura/vulkan-bindings/parser"
	"github.com/bsekura/vulkan-bindings/resolver"
)

func main() {
	registryPath := flag.String("registry", "vk.xml", "Path to the Vulkan API registry document")
	configPath := flag.String("config", "", "Path to the JSON filter configuration (optional)")
	outputDir := flag.String("output", ".", "Output directory for generated Go files")
	packageName := flag.String("package", "vk", "Go package name for the generated bindings")
	api := flag.String("api", "vulkan", "Registry API profile to generate for")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if err := run(*registryPath, *configPath, *outputDir, *packageName, *api); err != nil {
		log.WithError(err).Error("generation failed")
		os.Exit(1)
	}
}

func run(registryPath, configPath, outputDir, packageName, api string) error {
	f, err := os.Open(registryPath)
	if err != nil {
		return err
	}
	defer f.Close()

	reg, err := parser.Parse(f, parser.Options{API: api})
	if err != nil {
		return err
	}

	res, err := resolver.Resolve(reg)
	if err != nil {
		return err
	}

	cfg := filter.DefaultConfig()
	if configPath != "" {
		if cfg, err = filter.LoadConfig(configPath); err != nil {
			return err
		}
	}
	fr, err := filter.Apply(reg, res, cfg)
	if err != nil {
		return err
	}

	gen := generator.New(packageName, fr)
	files, err := gen.Generate()
	if err != nil {
		return err
	}
	return gen.Write(outputDir, files)
}
