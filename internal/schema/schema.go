// Package schema declares the progress-file layouts shipped with this build
// and the steps that upgrade one layout to the next.
//
//	1.0.0  {"version", "items": [{"id", "title", "done"}]}
//	1.0.1  adds "settings" and a "notes" string on every item
//	1.1.0  renames "items" to "tasks"; "done" becomes "status"
//
// Transforms only reshape the document. The runner stamps "version".
package schema

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/mesh-intelligence/checklist/internal/registry"
	"github.com/mesh-intelligence/checklist/internal/version"
	"github.com/mesh-intelligence/checklist/pkg/types"
)

// Known schema versions, oldest first.
const (
	V1_0_0 = "1.0.0"
	V1_0_1 = "1.0.1"
	V1_1_0 = "1.1.0"
)

// Baseline is the version a fresh progress file starts at.
const Baseline = V1_0_0

// Task status values introduced in 1.1.0.
const (
	StatusDone    = "done"
	StatusPending = "pending"
)

// Steps returns the built-in chain in order.
func Steps() []types.MigrationStep {
	return []types.MigrationStep{
		registry.NewStep(V1_0_0, V1_0_1, addSettingsAndNotes),
		registry.NewStep(V1_0_1, V1_1_0, itemsToTasks),
	}
}

// NewRegistry returns a registry holding the built-in chain.
func NewRegistry() *registry.Registry {
	return registry.New(version.MustParse(Baseline)).MustRegister(Steps()...)
}

// Empty returns a new progress document at the baseline version.
func Empty() []byte {
	blob, _ := sjson.SetBytes([]byte(`{}`), version.FieldName, Baseline)
	blob, _ = sjson.SetRawBytes(blob, "items", []byte(`[]`))
	return blob
}

func addSettingsAndNotes(ctx context.Context, blob []byte) ([]byte, error) {
	if err := document(ctx, blob); err != nil {
		return nil, err
	}
	out := blob
	var err error
	if !gjson.GetBytes(out, "settings").Exists() {
		if out, err = sjson.SetRawBytes(out, "settings", []byte(`{}`)); err != nil {
			return nil, errors.Wrap(err, "adding settings")
		}
	}

	items := gjson.GetBytes(out, "items")
	if !items.Exists() {
		return sjson.SetRawBytes(out, "items", []byte(`[]`))
	}
	if !items.IsArray() {
		return nil, errors.Wrap(types.ErrStateCorruption, "items is not an array")
	}
	for i, item := range items.Array() {
		if item.Get("notes").Exists() {
			continue
		}
		if out, err = sjson.SetBytes(out, fmt.Sprintf("items.%d.notes", i), ""); err != nil {
			return nil, errors.Wrapf(err, "adding notes to item %d", i)
		}
	}
	return out, nil
}

func itemsToTasks(ctx context.Context, blob []byte) ([]byte, error) {
	if err := document(ctx, blob); err != nil {
		return nil, err
	}
	items := gjson.GetBytes(blob, "items")
	if items.Exists() && !items.IsArray() {
		return nil, errors.Wrap(types.ErrStateCorruption, "items is not an array")
	}

	tasks := []byte(`[]`)
	for i, item := range items.Array() {
		status := StatusPending
		if item.Get("done").Bool() {
			status = StatusDone
		}
		task, err := sjson.SetBytes([]byte(item.Raw), "status", status)
		if err == nil {
			task, err = sjson.DeleteBytes(task, "done")
		}
		if err != nil {
			return nil, errors.Wrapf(err, "converting item %d", i)
		}
		if tasks, err = sjson.SetRawBytes(tasks, "-1", task); err != nil {
			return nil, errors.Wrapf(err, "appending task %d", i)
		}
	}

	out, err := sjson.SetRawBytes(blob, "tasks", tasks)
	if err != nil {
		return nil, errors.Wrap(err, "writing tasks")
	}
	return sjson.DeleteBytes(out, "items")
}

// document rejects input that is not a JSON object.
func document(ctx context.Context, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !gjson.ValidBytes(blob) || !gjson.ParseBytes(blob).IsObject() {
		return errors.Wrap(types.ErrStateCorruption, "progress document is not a JSON object")
	}
	return nil
}
