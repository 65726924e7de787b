// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package confstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/galaxy/console/core/galaxy"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "data", "console.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func sampleDesc(name string) galaxy.ServiceDesc {
	return galaxy.ServiceDesc{
		Name:    name,
		Replica: 2,
		Pod: galaxy.PodDesc{
			Requirement: galaxy.Resource{Millicores: 2000, Memory: 4 << 30},
			Tasks: []galaxy.TaskDesc{{
				Package:      "http://pkg.example/" + name + ".tar.gz",
				StartCommand: "./start.sh",
				StopCommand:  "./stop.sh",
				Requirement:  galaxy.Resource{Millicores: 1500, Memory: 3 << 30},
			}},
		},
	}
}

func TestCreateGetList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	created, err := store.Create(ctx, "", " nightly batch ", sampleDesc("indexer"))
	require.NoError(t, err)
	assert.Len(t, created.ID, 36)
	assert.Equal(t, "indexer", created.Name, "name defaults to the service name")
	assert.Equal(t, "nightly batch", created.Description)
	assert.Equal(t, 2, created.Desc.DeployStep)

	_, err = store.Create(ctx, "alpha", "", sampleDesc("web"))
	require.NoError(t, err)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Desc, got.Desc)
	assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Second)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDuplicateName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	_, err := store.Create(ctx, "web", "", sampleDesc("web"))
	require.NoError(t, err)

	_, err = store.Create(ctx, "web", "", sampleDesc("web2"))
	require.ErrorIs(t, err, ErrDuplicateName)
}

func TestCreateRejectsInvalidDesc(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	desc := sampleDesc("web")
	desc.Pod.Tasks = nil

	_, err := store.Create(context.Background(), "", "", desc)

	var verr *galaxy.ValidationError

	require.ErrorAs(t, err, &verr)

	_, err = store.Create(context.Background(), strings.Repeat("n", maxNameLength+1), "", sampleDesc("web"))
	require.ErrorAs(t, err, &verr)
}

func TestUpdateDeleteNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	conf, err := store.Create(ctx, "web", "v1", sampleDesc("web"))
	require.NoError(t, err)

	desc := sampleDesc("web")
	desc.Replica = 8
	desc.DeployStep = 2

	updated, err := store.Update(ctx, conf.ID, "v2", desc)
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Description)
	assert.Equal(t, 8, updated.Desc.Replica)
	assert.Equal(t, "web", updated.Name)

	require.NoError(t, store.RecordLaunch(ctx, conf.ID, "svc-1"))
	require.NoError(t, store.RecordLaunch(ctx, conf.ID, "svc-2"))

	launched, err := store.Get(ctx, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, launched.LaunchCount)
	assert.Equal(t, "svc-2", launched.LastServiceID)

	require.NoError(t, store.Delete(ctx, conf.ID))
	require.ErrorIs(t, store.Delete(ctx, conf.ID), ErrNotFound)

	_, err = store.Get(ctx, conf.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Update(ctx, conf.ID, "", desc)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, store.RecordLaunch(ctx, conf.ID, "svc-3"), ErrNotFound)
}

func TestReopenKeepsData(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "console.db")

	store, err := Open(path)
	require.NoError(t, err)

	conf, err := store.Create(context.Background(), "", "", sampleDesc("web"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)

	defer reopened.Close()

	got, err := reopened.Get(context.Background(), conf.ID)
	require.NoError(t, err)
	assert.Equal(t, "web", got.Name)
}
