/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	applog "hkannostudio/internal/log"
)

// VaultDirName is the folder under backups/ holding compressed animation-file
// backups. Blobs are content-addressed: <blake3>.xz with a <blake3>.json
// sidecar describing where the bytes came from. The update flow stores a
// backup here before letting the native tool rewrite a file in place.
const VaultDirName = "vault"

var (
	// ErrVaultMiss is returned when no vault entry exists for a hash.
	ErrVaultMiss = errors.New("vault: no entry for hash")
	// ErrVaultCorrupt is returned when a restored blob does not hash back to its name.
	ErrVaultCorrupt = errors.New("vault: blob content does not match hash")
)

// VaultEntry describes one stored backup.
type VaultEntry struct {
	Hash       string    `json:"hash"`
	Name       string    `json:"name"` // base name of the original file
	Size       int64     `json:"size"` // uncompressed bytes
	Compressed int64     `json:"compressed"`
	CreatedAt  time.Time `json:"createdAt"`
}

// VaultDir returns the vault directory for a workspace handle, or "" for nil.
func VaultDir(wh *WorkspaceHandle) string {
	if wh == nil {
		return ""
	}
	return filepath.Join(wh.Root, BackupsDirName, VaultDirName)
}

// VaultBackup stores a compressed copy of the file at srcPath in the vault and
// returns its entry. Identical content is stored once; a repeated backup of
// unchanged bytes returns the existing entry without rewriting the blob.
func VaultBackup(wh *WorkspaceHandle, srcPath string) (VaultEntry, error) {
	if wh == nil {
		return VaultEntry{}, errors.New("nil WorkspaceHandle")
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return VaultEntry{}, fmt.Errorf("read source: %w", err)
	}
	sum := blake3.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	vdir := VaultDir(wh)
	if err := os.MkdirAll(vdir, 0o755); err != nil {
		return VaultEntry{}, fmt.Errorf("ensure vault dir: %w", err)
	}
	blobPath := filepath.Join(vdir, hash+".xz")
	sidePath := filepath.Join(vdir, hash+".json")

	if ent, err := readVaultSidecar(sidePath); err == nil {
		return ent, nil // content already vaulted
	}

	// Compress to a temp file in the vault dir, then rename into place.
	temp := filepath.Join(vdir, fmt.Sprintf(".%s.tmp-%d", hash, os.Getpid()))
	if err := writeXZ(temp, data); err != nil {
		_ = os.Remove(temp)
		return VaultEntry{}, fmt.Errorf("write vault blob: %w", err)
	}
	if err := os.Rename(temp, blobPath); err != nil {
		_ = os.Remove(temp)
		return VaultEntry{}, fmt.Errorf("place vault blob: %w", err)
	}
	st, err := os.Stat(blobPath)
	if err != nil {
		return VaultEntry{}, fmt.Errorf("stat vault blob: %w", err)
	}

	ent := VaultEntry{
		Hash:       hash,
		Name:       filepath.Base(srcPath),
		Size:       int64(len(data)),
		Compressed: st.Size(),
		CreatedAt:  time.Now().UTC(),
	}
	sb, err := json.MarshalIndent(ent, "", "  ")
	if err != nil {
		return VaultEntry{}, fmt.Errorf("marshal sidecar: %w", err)
	}
	sb = append(sb, '\n')
	if err := writeFileSync(sidePath, sb); err != nil {
		return VaultEntry{}, fmt.Errorf("write sidecar: %w", err)
	}
	applog.WithComponent("storage").Info("vault backup stored",
		slog.String("name", ent.Name),
		slog.String("hash", hash[:12]),
		slog.Int64("size", ent.Size),
		slog.Int64("compressed", ent.Compressed),
	)
	return ent, nil
}

// VaultList returns all vault entries, newest first.
func VaultList(wh *WorkspaceHandle) ([]VaultEntry, error) {
	if wh == nil {
		return nil, errors.New("nil WorkspaceHandle")
	}
	vdir := VaultDir(wh)
	ents, err := os.ReadDir(vdir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vault dir: %w", err)
	}
	var out []VaultEntry
	for _, e := range ents {
		if !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ve, err := readVaultSidecar(filepath.Join(vdir, e.Name()))
		if err != nil {
			continue // skip unreadable sidecars; blob may still be restorable by hash
		}
		out = append(out, ve)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// VaultRestore decompresses the blob for hash to dstPath. The restored bytes
// are re-hashed before the destination is written; a mismatch yields
// ErrVaultCorrupt and leaves dstPath untouched.
func VaultRestore(wh *WorkspaceHandle, hash, dstPath string) error {
	if wh == nil {
		return errors.New("nil WorkspaceHandle")
	}
	blobPath := filepath.Join(VaultDir(wh), hash+".xz")
	f, err := os.Open(blobPath)
	if os.IsNotExist(err) {
		return ErrVaultMiss
	}
	if err != nil {
		return fmt.Errorf("open vault blob: %w", err)
	}
	defer f.Close()
	r, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("open xz stream: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("decompress vault blob: %w", err)
	}
	sum := blake3.Sum256(data)
	if hex.EncodeToString(sum[:]) != hash {
		return ErrVaultCorrupt
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return fmt.Errorf("ensure destination dir: %w", err)
	}
	if err := writeFileSync(dstPath, data); err != nil {
		return fmt.Errorf("write restored file: %w", err)
	}
	return nil
}

// VaultPrune keeps the keepLast newest entries and deletes the rest
// (blob and sidecar). Returns the number of entries removed.
func VaultPrune(wh *WorkspaceHandle, keepLast int) (int, error) {
	if wh == nil {
		return 0, errors.New("nil WorkspaceHandle")
	}
	if keepLast < 0 {
		keepLast = 0
	}
	entries, err := VaultList(wh)
	if err != nil {
		return 0, err
	}
	if len(entries) <= keepLast {
		return 0, nil
	}
	vdir := VaultDir(wh)
	removed := 0
	for _, ent := range entries[keepLast:] {
		_ = os.Remove(filepath.Join(vdir, ent.Hash+".xz"))
		if err := os.Remove(filepath.Join(vdir, ent.Hash+".json")); err == nil {
			removed++
		}
	}
	return removed, nil
}

func readVaultSidecar(path string) (VaultEntry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return VaultEntry{}, err
	}
	var ent VaultEntry
	if err := json.Unmarshal(b, &ent); err != nil {
		return VaultEntry{}, fmt.Errorf("parse sidecar: %w", err)
	}
	return ent, nil
}

// writeXZ writes data xz-compressed to path and flushes it to disk.
func writeXZ(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w, err := xz.NewWriter(f)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}
