//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the GLSL shaders to SPIR-V with glslc.
func (Build) Shaders() error {
	if _, err := executeCmd("glslc", withArgs("assets/shaders/mesh.vert", "-o", "assets/shaders/mesh.vert.spv"), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("glslc", withArgs("assets/shaders/mesh.frag", "-o", "assets/shaders/mesh.frag.spv"), withStream()); err != nil {
		return err
	}
	return nil
}

// Builds the testbed binary, shaders included.
func (Build) Testbed() error {
	if err := (Build{}).Shaders(); err != nil {
		return err
	}
	if _, err := executeCmd("go", withArgs("build", "-o", "spectra", "."), withStream()); err != nil {
		return err
	}
	return nil
}
