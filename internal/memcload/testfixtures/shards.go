package testfixtures

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

const (
	IdfaLine1 = "idfa\te7e1a50c0ec2747ca56cd9e1558c0d7c\t67.7835424444\t-22.8044005471\t7942,8519,4232,3032"
	IdfaLine2 = "idfa\tf5ae5fe6122bb20d08ff2c2ec43fb4c4\t-104.68583244\t-51.24448376\t4877,7862,7181,6071,2107"
	IdfaLine3 = "idfa\t2ef94e4d2af9a2b6b2e4aaf44d2b8d8d\t55.55\t42.42\t1423,43,567,3,7,23"
	GaidLine1 = "gaid\t3261cf44cbe6a00839c574336fdf49f6\t137.790839567\t56.8403675248\t7462,1115,5205"
	GaidLine2 = "gaid\t7rfw452y52g2gq4g\t55.55\t42.42\t7423,424"
	GaidLine3 = "gaid\t9a8dbb7c6b3e0a7d3a5c4c1b2a6e8f0d\t-1.5\t3.25\t1"
)

// SampleLines returns three idfa and three gaid well formed lines
func SampleLines() []string {
	return []string{IdfaLine1, GaidLine1, IdfaLine2, GaidLine2, IdfaLine3, GaidLine3}
}

// WriteShard writes newline terminated lines to a gzip file in dir and returns its path
func WriteShard(t *testing.T, dir string, name string, lines []string) string {
	return WriteRawShard(t, dir, name, strings.Join(lines, "\n")+"\n")
}

// WriteRawShard writes data as is to a gzip file in dir and returns its path
func WriteRawShard(t *testing.T, dir string, name string, data string) string {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

// WriteCorruptShard writes a file with a valid gzip header whose body has been damaged
func WriteCorruptShard(t *testing.T, dir string, name string, lines []string) string {
	path := WriteShard(t, dir, name, lines)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for i := 12; i < len(raw)-8; i++ {
		raw[i] ^= 0x5a
	}
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

// Claimed returns the path a shard is renamed to once it has been fully loaded
func Claimed(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path))
}
