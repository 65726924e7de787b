// Copyright 2025, the Galaxy Console contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"strconv"

	"github.com/rs/zerolog/log"

	"codeberg.org/galaxy/console/config"
)

var (
	errChmodSocket = errors.New("failed to change unix socket permissions")
	errChownSocket = errors.New("failed to change unix socket ownership")
)

// listen opens the unix socket when one is configured, else the TCP address.
func listen() (net.Listener, error) {
	var lc net.ListenConfig

	basic := config.Global.Basic

	if basic.UnixSocket != "" {
		ln, err := lc.Listen(context.Background(), "unix", basic.UnixSocket)
		if err != nil {
			return nil, fmt.Errorf("listen on unix socket %s: %w", basic.UnixSocket, err)
		}

		if err := prepareSocket(basic.UnixSocket, basic.UnixSocketUser, basic.UnixSocketGroup, basic.UnixSocketPermissions); err != nil {
			_ = ln.Close()

			return nil, err
		}

		log.Info().
			Str("socket", basic.UnixSocket).
			Msg("Listening on unix socket")

		return ln, nil
	}

	ln, err := lc.Listen(context.Background(), "tcp", net.JoinHostPort(basic.Host, basic.Port))
	if err != nil {
		return nil, fmt.Errorf("listen on %s:%s: %w", basic.Host, basic.Port, err)
	}

	addr := ln.Addr().(*net.TCPAddr)

	log.Info().
		Str("address", addr.String()).
		Int("port", addr.Port).
		Str("url", fmt.Sprintf("http://localhost:%d/", addr.Port)).
		Msg("Listening on address")

	return ln, nil
}

// prepareSocket hands the socket file to the configured owner and mode.
// Empty owner or group leaves that part unchanged.
func prepareSocket(path, owner, group string, mode os.FileMode) error {
	uid, err := lookupID(owner, func(name string) (string, error) {
		u, err := user.Lookup(name)
		if err != nil {
			return "", err
		}

		return u.Uid, nil
	})
	if err != nil {
		return fmt.Errorf("%w: user %q: %w", errChownSocket, owner, err)
	}

	gid, err := lookupID(group, func(name string) (string, error) {
		g, err := user.LookupGroup(name)
		if err != nil {
			return "", err
		}

		return g.Gid, nil
	})
	if err != nil {
		return fmt.Errorf("%w: group %q: %w", errChownSocket, group, err)
	}

	if uid != -1 || gid != -1 {
		if err := os.Chown(path, uid, gid); err != nil {
			return fmt.Errorf("%w: %w", errChownSocket, err)
		}
	}

	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("%w: %w", errChmodSocket, err)
	}

	return nil
}

// lookupID accepts a numeric id or a name resolved through lookup.
// An empty value yields -1, which os.Chown leaves untouched.
func lookupID(value string, lookup func(string) (string, error)) (int, error) {
	if value == "" {
		return -1, nil
	}

	if id, err := strconv.Atoi(value); err == nil {
		return id, nil
	}

	raw, err := lookup(value)
	if err != nil {
		return -1, err
	}

	return strconv.Atoi(raw)
}
