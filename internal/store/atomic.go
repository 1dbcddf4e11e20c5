// Package store provides atomic JSON file persistence used by every
// durable artifact in relaycore (session snapshots, tool config,
// permission overrides, MCP servers/cache, scheduled tasks).
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// WriteJSON serializes v and writes it to path atomically: marshal, write
// to a sibling temp file, fsync, then rename over the destination. A
// reader can never observe a half-written file.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadJSON reads and unmarshals path into v. If the file does not exist,
// it returns os.ErrNotExist so callers can fall back to a default value.
// A corrupt (unparseable) file is reported via the returned error as well
// — callers that must never fail startup on a corrupt file should treat
// any error here as "use the default", per relaycore's persistence
// contract, and log it.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ReadJSONOrDefault reads path into v; on any error (missing or corrupt
// file) it leaves v untouched and returns false so the caller can log and
// proceed with v's zero/default value instead of failing startup.
func ReadJSONOrDefault(path string, v any) (ok bool, err error) {
	readErr := ReadJSON(path, v)
	if readErr != nil {
		return false, readErr
	}
	return true, nil
}
