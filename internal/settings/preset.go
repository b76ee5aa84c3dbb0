package settings

import (
	"os"

	"codeberg.org/mutker/obsctl/internal/errors"
	"github.com/naoina/toml"
)

// DecodePreset reads a TOML geometry preset. Keys absent from data keep
// their DefaultGeometry values. Numeric lengths must be written as floats.
func DecodePreset(data []byte) (Geometry, error) {
	g := DefaultGeometry()
	if err := toml.Unmarshal(data, &g); err != nil {
		return Geometry{}, errors.New().Wrap(ErrPresetDecode, err)
	}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

// EncodePreset renders g in the preset format read by DecodePreset.
func EncodePreset(g Geometry) ([]byte, error) {
	data, err := toml.Marshal(g)
	if err != nil {
		return nil, errors.New().Wrap(ErrPresetEncode, err)
	}
	return data, nil
}

// LoadPreset reads and decodes the preset file at path.
func LoadPreset(path string) (Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Geometry{}, errors.New().WithData(ErrPresetRead, struct {
			Path  string
			Error string
		}{
			Path:  path,
			Error: err.Error(),
		})
	}
	return DecodePreset(data)
}

// WritePreset encodes g to path.
func WritePreset(path string, g Geometry) error {
	data, err := EncodePreset(g)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, defaultFilePerm); err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	return nil
}
