package contracts

import (
	"encoding/json"
	"path"
	"testing"
	"testing/fstest"

	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/stretchr/testify/require"
)

func TestReadMissingFiles(t *testing.T) {
	fsys := fstest.MapFS{}

	// Missing NEF.
	_, err := ReadSavings(fsys)
	require.Error(t, err)

	// Missing manifest.
	fsys[path.Join(SavingsDir, nefName)] = &fstest.MapFile{}
	_, err = ReadSavings(fsys)
	require.Error(t, err)
}

func TestReadInvalidFormat(t *testing.T) {
	var (
		fsys         = fstest.MapFS{}
		nefPath      = path.Join(SavingsDir, nefName)
		manifestPath = path.Join(SavingsDir, manifestName)
	)

	expectedNEF, validNEF := anyValidNEF(t)
	expectedManifest, validManifest := anyValidManifest(t, "Savings")

	fsys[nefPath] = &fstest.MapFile{Data: validNEF}
	fsys[manifestPath] = &fstest.MapFile{Data: validManifest}

	c, err := ReadSavings(fsys)
	require.NoError(t, err)
	require.Equal(t, expectedNEF.Checksum, c.NEF.Checksum)
	require.Equal(t, expectedNEF.Script, c.NEF.Script)
	require.Equal(t, expectedManifest.Name, c.Manifest.Name)

	fsys[nefPath] = &fstest.MapFile{Data: []byte("not a NEF")}
	fsys[manifestPath] = &fstest.MapFile{Data: validManifest}

	_, err = ReadSavings(fsys)
	require.ErrorIs(t, err, errInvalidNEF)

	fsys[nefPath] = &fstest.MapFile{Data: validNEF}
	fsys[manifestPath] = &fstest.MapFile{Data: []byte("not a manifest")}

	_, err = ReadSavings(fsys)
	require.ErrorIs(t, err, errInvalidManifest)
}

func TestReadNestedDir(t *testing.T) {
	_, validNEF := anyValidNEF(t)
	_, validManifest := anyValidManifest(t, "Token")

	fsys := fstest.MapFS{
		"testdata/token/" + nefName:      &fstest.MapFile{Data: validNEF},
		"testdata/token/" + manifestName: &fstest.MapFile{Data: validManifest},
	}

	c, err := Read(fsys, "testdata/token")
	require.NoError(t, err)
	require.Equal(t, "Token", c.Manifest.Name)

	_, err = Read(fsys, "testdata")
	require.Error(t, err)
}

func anyValidNEF(tb testing.TB) (nef.File, []byte) {
	script := make([]byte, 32)

	_nef, err := nef.NewFile(script)
	require.NoError(tb, err)

	bNEF, err := _nef.Bytes()
	require.NoError(tb, err)

	return *_nef, bNEF
}

func anyValidManifest(tb testing.TB, name string) (manifest.Manifest, []byte) {
	_manifest := manifest.NewManifest(name)

	jManifest, err := json.Marshal(_manifest)
	require.NoError(tb, err)

	return *_manifest, jManifest
}
