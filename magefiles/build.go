//go:build mage

package main

import (
	"fmt"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
)

const shaderDir = "shaders"

// Output name of every GLSL stage under shaders/.
var shaderOutputs = map[string]string{
	"shader.vert": "vert.spv",
	"shader.frag": "frag.spv",
}

type Build mg.Namespace

// Compiles the GLSL shaders to SPIR-V with glslc, skipping up to date outputs.
func (Build) Shaders() error {
	for src, dst := range shaderOutputs {
		in := filepath.Join(shaderDir, src)
		out := filepath.Join(shaderDir, dst)
		stale, err := shaderStale(in, out)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}
		if _, err := executeCmd("glslc", withArgs(in, "-o", out), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the prism binary into bin/.
func (Build) Binary() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", filepath.Join("bin", "prism"), "."), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the unit tests, then the build script tests.
func Test() error {
	if _, err := executeCmd("go", withArgs("test", "./..."), withStream()); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("test", "-tags", "mage", "./magefiles"), withStream())
	return err
}

// shaderStale reports whether out is missing or older than its source in.
func shaderStale(in, out string) (bool, error) {
	stale, err := target.Path(out, in)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", in, err)
	}
	return stale, nil
}
