package simflash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemory_ProgramAndRead(t *testing.T) {
	m := NewMemory(1024, 256)

	require.NoError(t, m.Program(0, []byte{0x0F, 0x00}))

	buf := make([]byte, 2)
	require.NoError(t, m.ReadAt(0, buf))
	require.Equal(t, []byte{0x0F, 0x00}, buf)
}

func TestMemory_ProgramRejectsSettingBits(t *testing.T) {
	m := NewMemory(1024, 256)

	require.NoError(t, m.Program(0, []byte{0x00}))

	err := m.Program(0, []byte{0xFF})
	require.Error(t, err)
}

func TestMemory_EraseSectorResetsToFF(t *testing.T) {
	m := NewMemory(1024, 256)

	require.NoError(t, m.Program(0, []byte{0x00, 0x00}))
	require.NoError(t, m.EraseSector(0))

	buf := make([]byte, 2)
	require.NoError(t, m.ReadAt(0, buf))
	require.Equal(t, []byte{0xFF, 0xFF}, buf)
}

func TestMemory_CrashAfterNthPrimitive(t *testing.T) {
	m := NewMemory(1024, 256).WithCrashAfter(2)

	require.NoError(t, m.Program(0, []byte{0x00}))

	require.Panics(t, func() {
		_ = m.Program(4, []byte{0x00})
	})
}

func TestMemory_SnapshotAndRestore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")

	m := NewMemory(64, 16)
	require.NoError(t, m.Program(0, []byte{0x00, 0x0F}))
	require.NoError(t, m.Snapshot(path))

	restored, err := RestoreMemory(path, 16)
	require.NoError(t, err)

	buf := make([]byte, 2)
	require.NoError(t, restored.ReadAt(0, buf))
	require.Equal(t, []byte{0x00, 0x0F}, buf)
}

func TestFile_CreatesBlankImageOnFirstOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")

	f, err := OpenFile(path, 64, 16)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 64)
	require.NoError(t, f.ReadAt(0, buf))

	for _, b := range buf {
		require.Equal(t, byte(0xFF), b)
	}

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(64), info.Size())
}

func TestFile_ProgramPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.bin")

	f, err := OpenFile(path, 64, 16)
	require.NoError(t, err)
	require.NoError(t, f.Program(0, []byte{0x00, 0x0F}))
	require.NoError(t, f.Close())

	reopened, err := OpenFile(path, 64, 16)
	require.NoError(t, err)
	defer reopened.Close()

	buf := make([]byte, 2)
	require.NoError(t, reopened.ReadAt(0, buf))
	require.Equal(t, []byte{0x00, 0x0F}, buf)
}
