// commands.go: derive, sample and primitives subcommands.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/agilira/subkey"
)

func (a *app) deriveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "derive a subkey and print it",
		Long: "Derive a subkey from the parent key in --parent-key-file, the\n" +
			"SUBKEY_PARENT_KEY environment variable, or an interactive prompt.",
		Args: cobra.NoArgs,
		RunE: a.doDerive,
	}
	cmd.Flags().String(cfgParentKeyFile, "", "file holding the encoded parent key")
	cmd.Flags().Bool(cfgPrompt, false, "prompt for the parent key")
	cmd.Flags().Uint64(cfgIndex, 0, "subkey index")
	cmd.Flags().String(cfgContext, "", "context tag, exactly 8 bytes")
	cmd.Flags().Int(cfgLength, 32, "subkey length in bytes")
	return cmd
}

func (a *app) doDerive(cmd *cobra.Command, _ []string) error {
	parent, err := a.loadParent()
	if err != nil {
		return err
	}
	defer func() { _ = parent.Free() }()

	contextTag := a.v.GetString(cfgContext)
	context := subkey.NewInsecure(len(contextTag))
	w, err := context.WriteLock()
	if err != nil {
		return err
	}
	copy(w.Bytes(), contextTag)
	w.Release()

	length := a.v.GetInt(cfgLength)
	out, err := subkey.NewSecure(length)
	if err != nil {
		return err
	}
	defer func() { _ = out.Free() }()

	deriver, err := a.registry.Deriver(a.v.GetString(cfgPrimitive), &subkey.DeriverConfig{Logger: a.logger})
	if err != nil {
		return err
	}

	index := a.v.GetUint64(cfgIndex)
	if err := deriver.Derive(out, index, context, parent); err != nil {
		return err
	}

	view, err := out.ReadLock()
	if err != nil {
		return err
	}
	encoded, err := a.encode(view.Bytes())
	view.Release()
	if err != nil {
		return err
	}

	a.logger.Info("subkey derived",
		"primitive", deriver.Primitive().Name(),
		"index", index,
		"length", length,
		"parent", parentFingerprint(parent),
	)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), encoded)
	return err
}

// loadParent reads the encoded parent key and moves it into secure memory.
func (a *app) loadParent() (*subkey.SecBuf, error) {
	var encoded []byte
	switch {
	case a.v.GetString(cfgParentKeyFile) != "":
		data, err := os.ReadFile(a.v.GetString(cfgParentKeyFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read parent key: %w", err)
		}
		encoded = data
	case a.v.GetString(cfgParentKey) != "":
		encoded = []byte(a.v.GetString(cfgParentKey))
	case a.v.GetBool(cfgPrompt):
		var answer string
		if err := survey.AskOne(&survey.Password{
			Message: "Parent key:",
		}, &answer, survey.WithValidator(survey.Required)); err != nil {
			return nil, err
		}
		encoded = []byte(answer)
	default:
		return nil, errors.New("no parent key: use --parent-key-file, SUBKEY_PARENT_KEY or --prompt")
	}
	defer subkey.Zeroize(encoded)

	raw, err := a.decode(string(encoded))
	if err != nil {
		return nil, err
	}
	return subkey.LoadSecure(raw)
}

func parentFingerprint(parent *subkey.SecBuf) string {
	view, err := parent.ReadLock()
	if err != nil {
		return ""
	}
	defer view.Release()
	return subkey.Fingerprint(view)
}

func (a *app) sampleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "print random key material for tests and demos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			buf, err := subkey.NewSecure(a.v.GetInt(cfgLength))
			if err != nil {
				return err
			}
			defer func() { _ = buf.Free() }()

			if err := subkey.RandomFill(buf); err != nil {
				return err
			}

			view, err := buf.ReadLock()
			if err != nil {
				return err
			}
			encoded, err := a.encode(view.Bytes())
			view.Release()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), encoded)
			return err
		},
	}
	cmd.Flags().Int(cfgLength, subkey.KeyBytes, "number of random bytes")
	return cmd
}

func (a *app) primitivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "primitives",
		Short: "list derivation primitives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
			table.SetCenterSeparator("|")
			table.SetHeader([]string{"name", "key", "context", "length", "default"})
			for _, info := range a.registry.Primitives() {
				def := ""
				if info.Default {
					def = "*"
				}
				table.Append([]string{
					info.Name,
					strconv.Itoa(info.KeyBytes),
					strconv.Itoa(info.ContextBytes),
					fmt.Sprintf("%d-%d", info.BytesMin, info.BytesMax),
					def,
				})
			}
			table.Render()
			return nil
		},
	}
}
