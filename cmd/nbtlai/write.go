package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/ZaguanLabs/nbtlai/notebook"
)

// outputPlan says where a translation goes.
type outputPlan struct {
	input  string
	output string
	backup string // set when the input is moved aside first
}

// planOutput names the files of a run. The default output is
// <name>_<target><ext> next to the input; with rename the input becomes
// <name>_bk<ext> and the translation takes its place.
func planOutput(input, target, output string, rename bool) outputPlan {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(input, ext)

	switch {
	case rename:
		return outputPlan{input: input, output: input, backup: stem + "_bk" + ext}
	case output != "":
		return outputPlan{input: input, output: output}
	default:
		return outputPlan{input: input, output: stem + "_" + target + ext}
	}
}

// writeTranslation writes doc according to plan while holding an advisory
// lock next to the output, so two runs never interleave on the same file.
func writeTranslation(plan outputPlan, doc *notebook.Document, opts notebook.MarshalOptions) error {
	lockPath := plan.output + ".lock"
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%s is being written by another nbtlai process", plan.output)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
	}()

	if plan.backup != "" {
		if _, err := os.Stat(plan.backup); err == nil {
			return fmt.Errorf("backup %s already exists", plan.backup)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking backup: %w", err)
		}
		if err := os.Rename(plan.input, plan.backup); err != nil {
			return fmt.Errorf("renaming %s: %w", plan.input, err)
		}
	}

	if err := notebook.WriteFile(plan.output, doc, opts); err != nil {
		if plan.backup != "" {
			_ = os.Rename(plan.backup, plan.input)
		}
		return err
	}
	return nil
}

func writeJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
