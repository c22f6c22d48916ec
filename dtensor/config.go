// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package dtensor

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Mesh topologies can be declared in HCL for tooling:
//
//	mesh "training" {
//	  devices = ["cpu:0", "cpu:1", "cpu:2", "cpu:3"]
//
//	  dim {
//	    name = "batch"
//	    size = 2
//	  }
//	  dim {
//	    name = "model"
//	    size = 2
//	  }
//	}

type meshFile struct {
	Meshes []meshBlock `hcl:"mesh,block"`
}

type meshBlock struct {
	Name    string     `hcl:"name,label"`
	Devices []string   `hcl:"devices"`
	Dims    []dimBlock `hcl:"dim,block"`
}

type dimBlock struct {
	Name string `hcl:"name"`
	Size int    `hcl:"size"`
}

// ParseMeshConfig decodes mesh definitions from HCL source.
func ParseMeshConfig(src []byte, filename string) ([]*Mesh, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parse %s: %w", filename, diags)
	}

	var cfg meshFile
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decode %s: %w", filename, diags)
	}
	if len(cfg.Meshes) == 0 {
		return nil, fmt.Errorf("%s: no mesh blocks found", filename)
	}

	meshes := make([]*Mesh, 0, len(cfg.Meshes))
	for _, mb := range cfg.Meshes {
		dims := make([]MeshDim, len(mb.Dims))
		for i, d := range mb.Dims {
			dims[i] = MeshDim{Name: d.Name, Size: d.Size}
		}
		mesh, err := NewMesh(mb.Name, dims, mb.Devices)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

// LoadMeshFile reads and decodes a mesh topology file.
func LoadMeshFile(path string) ([]*Mesh, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMeshConfig(src, path)
}
