// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package confstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/galaxy/console/core/galaxy"
)

const importDoc = `name: search-frontend
description: public search tier
service:
  name: search
  type: LongRun
  replica: 10
  deployStep: 2
  priority: Production
  pod:
    requirement:
      millicores: 4000
      memory: 8G
    tasks:
      - package: ftp://pkg.example/search.tar.gz
        startCommand: ./bin/search
        requirement:
          millicores: 4000
          memory: 8GiB
`

func TestImportExportRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	conf, err := store.ImportYAML(ctx, []byte(importDoc))
	require.NoError(t, err)
	assert.Equal(t, "search-frontend", conf.Name)
	assert.Equal(t, galaxy.Production, conf.Desc.Priority)
	assert.Equal(t, galaxy.Bytes(8<<30), conf.Desc.Pod.Requirement.Memory)

	out, filename, err := store.ExportYAML(ctx, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, "search-frontend.yaml", filename)
	assert.Contains(t, string(out), "memory: 8GiB")

	require.NoError(t, store.Delete(ctx, conf.ID))

	again, err := store.ImportYAML(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, conf.Desc, again.Desc)
	assert.Equal(t, conf.Description, again.Description)
}

func TestImportRejects(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	tests := map[string]string{
		"unknown key":  "name: x\nreplicas: 3\n",
		"not yaml":     "name: [unterminated\n",
		"invalid desc": "name: x\nservice:\n  name: x\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := store.ImportYAML(context.Background(), []byte(doc))

			var verr *galaxy.ValidationError

			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestExportMissing(t *testing.T) {
	t.Parallel()

	_, _, err := openTestStore(t).ExportYAML(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrNotFound)
}
