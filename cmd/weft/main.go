// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package main provides the Weft ML Framework CLI.
package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/weft-ml/weft/dtensor"
)

const version = "v0.1.0-dev"

func main() {
	root := &cobra.Command{
		Use:   "weft",
		Short: "Weft ML Framework - distributed variable layouts for Go",
	}

	root.AddCommand(versionCmd(), meshCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Weft ML Framework %s\n", version)
		},
	}
}

func meshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mesh",
		Short: "Inspect device mesh topology files",
	}
	cmd.AddCommand(meshValidateCmd(), meshDescribeCmd())
	return cmd
}

func meshValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.hcl>",
		Short: "Check a mesh topology file for errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meshes, err := dtensor.LoadMeshFile(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d mesh(es) OK\n", args[0], len(meshes))
			return nil
		},
	}
}

func meshDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <file.hcl>",
		Short: "Print the device-to-coordinate assignment of each mesh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meshes, err := dtensor.LoadMeshFile(args[0])
			if err != nil {
				return err
			}
			for _, mesh := range meshes {
				describeMesh(mesh)
			}
			return nil
		},
	}
}

func describeMesh(mesh *dtensor.Mesh) {
	fmt.Printf("%s  (%d devices)\n", mesh.String(), mesh.NumDevices())

	dims := mesh.Dims()
	header := []string{"device"}
	for _, d := range dims {
		header = append(header, d.Name)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	for i, dev := range mesh.Devices() {
		coords := mesh.Coordinates(i)
		row := []string{dev}
		for _, c := range coords {
			row = append(row, fmt.Sprintf("%d", c))
		}
		table.Append(row)
	}
	table.Render()
	fmt.Println()
}
