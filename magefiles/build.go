//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the sample shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the ktxpack tool used to assemble array textures from PNGs.
func (Build) Ktxpack() error {
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/ktxpack", "./cmd/ktxpack"), withStream()); err != nil {
		return err
	}
	return nil
}
