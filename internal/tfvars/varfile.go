package tfvars

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// TempVarFile is a .tfvars.json file that lives for one command invocation.
type TempVarFile struct {
	path   string
	digest string
	values Values
}

// NewTempVarFile resolves names and writes the values found into a new file
// under dir (the system temp dir when empty). Close removes it.
func NewTempVarFile(ctx context.Context, r *Resolver, dir string, names ...string) (*TempVarFile, error) {
	values, err := r.Collect(ctx, names...)
	if err != nil {
		return nil, err
	}

	data, err := Encode(values)
	if err != nil {
		return nil, err
	}

	f, err := os.CreateTemp(dir, "hab-*.tfvars.json")
	if err != nil {
		return nil, err
	}
	tf := &TempVarFile{path: f.Name(), values: values}

	if _, err := f.Write(data); err != nil {
		f.Close()
		tf.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		tf.Close()
		return nil, err
	}

	sum := sha256.Sum256(data)
	tf.digest = hex.EncodeToString(sum[:])
	return tf, nil
}

// WithTempVarFile runs fn with a temporary var file and removes the file
// however fn returns, including by panic.
func WithTempVarFile(ctx context.Context, r *Resolver, dir string, names []string, fn func(*TempVarFile) error) (err error) {
	tf, err := NewTempVarFile(ctx, r, dir, names...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tf.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(tf)
}

// Path is the file location handed to terraform.
func (t *TempVarFile) Path() string { return t.path }

// Digest is the sha256 of the file content.
func (t *TempVarFile) Digest() string { return t.digest }

// Values returns the values written to the file.
func (t *TempVarFile) Values() Values { return t.values }

// Close removes the file. It is safe to call more than once.
func (t *TempVarFile) Close() error {
	err := os.Remove(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Encode renders values as a terraform JSON var file.
func Encode(values Values) ([]byte, error) {
	if len(values) == 0 {
		return []byte("{}"), nil
	}
	obj := cty.ObjectVal(values)
	return ctyjson.Marshal(obj, obj.Type())
}
