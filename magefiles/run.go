//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the demo with config.toml.
func (Run) Demo() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run demo...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "config.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the demo with the validation layer forced on.
func (Run) Validated() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "config.toml"), withEnv("PRISM_VALIDATION=true"), withStream()); err != nil {
		return err
	}
	return nil
}
