package storagekit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// Facade is the caller surface: it opens files by path or handle and runs
// the common read, write and permission flows on them. Permission requests
// are issued from the facade's host.
type Facade struct {
	resolver *Resolver
	broker   *Broker
	host     *Host
	log      *slog.Logger
}

// WithHost returns a facade sharing this one's resolver and broker but
// issuing requests from host.
func (k *Facade) WithHost(host *Host) *Facade {
	c := *k
	c.host = host
	return &c
}

// Host returns the host requests are issued from, or nil.
func (k *Facade) Host() *Host { return k.host }

// Broker returns the permission broker.
func (k *Facade) Broker() *Broker { return k.broker }

// Resolver returns the path resolver.
func (k *Facade) Resolver() *Resolver { return k.resolver }

// HandleScheme prefixes the handles the facade accepts in place of a path.
const HandleScheme = "content://"

// Open returns the File for path. Nothing is read from storage.
func (k *Facade) Open(path string) (File, error) {
	return k.resolver.Open(path)
}

// OpenHandle returns the File for a handle obtained elsewhere.
func (k *Facade) OpenHandle(handle string) (File, error) {
	return k.resolver.OpenHandle(handle)
}

// file resolves the target of a path-keyed call. Handles are wrapped as
// they are; everything else is classified.
func (k *Facade) file(path string) (File, error) {
	if strings.HasPrefix(path, HandleScheme) {
		return k.resolver.OpenHandle(path)
	}
	return k.resolver.Open(path)
}

// CreateFile creates the file at path if absent.
func (k *Facade) CreateFile(ctx context.Context, path string) bool {
	f, err := k.file(path)
	if err != nil {
		return false
	}
	return f.CreateFile(ctx)
}

// Mkdir creates the directory at path if absent.
func (k *Facade) Mkdir(ctx context.Context, path string) bool {
	f, err := k.file(path)
	if err != nil {
		return false
	}
	return f.Mkdir(ctx)
}

// Delete removes the file at path.
func (k *Facade) Delete(ctx context.Context, path string) error {
	f, err := k.file(path)
	if err != nil {
		return err
	}
	return f.Delete(ctx)
}

// Exists reports whether something is present at path.
func (k *Facade) Exists(ctx context.Context, path string) bool {
	f, err := k.file(path)
	if err != nil {
		return false
	}
	return f.Exists(ctx)
}

// Stat returns the metadata of the file at path.
func (k *Facade) Stat(ctx context.Context, path string) (*FileInfo, error) {
	f, err := k.file(path)
	if err != nil {
		return nil, err
	}
	return f.Stat(ctx)
}

// List returns the names of the children of the directory at path.
func (k *Facade) List(ctx context.Context, path string) ([]string, error) {
	f, err := k.file(path)
	if err != nil {
		return nil, err
	}
	return f.List(ctx)
}

// ListFiles resolves the children of the directory at path.
func (k *Facade) ListFiles(ctx context.Context, path string) ([]File, error) {
	f, err := k.file(path)
	if err != nil {
		return nil, err
	}
	return ListFiles(ctx, f)
}

// ReadInto performs a single read of the file at path into buf and returns
// the byte count. End of file is reported as a zero count, not an error.
func (k *Facade) ReadInto(ctx context.Context, path string, buf []byte) (int, error) {
	f, err := k.file(path)
	if err != nil {
		return 0, err
	}
	stream, err := f.Open(ctx, ModeRead)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	n, err := stream.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, storageError("read", f.Path(), err)
	}
	return n, nil
}

// ReadAll reads the whole content of the file at path.
func (k *Facade) ReadAll(ctx context.Context, path string) ([]byte, error) {
	f, err := k.file(path)
	if err != nil {
		return nil, err
	}
	return readAll(ctx, f)
}

func readAll(ctx context.Context, f File) ([]byte, error) {
	stream, err := f.Open(ctx, ModeRead)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, storageError("read", f.Path(), err)
	}
	return data, nil
}

// ReadText reads the whole content of the file at path decoded from
// charset. An empty charset is UTF-8.
func (k *Facade) ReadText(ctx context.Context, path, charset string) (string, error) {
	f, err := k.file(path)
	if err != nil {
		return "", err
	}
	data, err := readAll(ctx, f)
	if err != nil {
		return "", err
	}
	text, err := decodeText(data, charset)
	if err != nil {
		return "", storageError("read", f.Path(), err)
	}
	return text, nil
}

// Write creates the file at path if needed and writes data in mode,
// ModeTruncate when no mode is given.
func (k *Facade) Write(ctx context.Context, path string, data []byte, mode ...Mode) error {
	f, err := k.file(path)
	if err != nil {
		return err
	}
	return write(ctx, f, data, mode...)
}

func write(ctx context.Context, f File, data []byte, mode ...Mode) error {
	m := ModeTruncate
	if len(mode) > 0 {
		m = mode[0]
	}
	if !m.Writable() {
		return &PathError{Op: "write", Path: f.Path(), Err: ErrNotSupported}
	}

	f.CreateFile(ctx)
	stream, err := f.Open(ctx, m)
	if err != nil {
		return err
	}
	if _, err := stream.Write(data); err != nil {
		stream.Close()
		return storageError("write", f.Path(), err)
	}
	if err := stream.Close(); err != nil {
		return storageError("write", f.Path(), err)
	}
	return nil
}

// WriteText encodes text in charset and writes it like Write.
func (k *Facade) WriteText(ctx context.Context, path, text, charset string, mode ...Mode) error {
	f, err := k.file(path)
	if err != nil {
		return err
	}
	data, err := encodeText(text, charset)
	if err != nil {
		return storageError("write", f.Path(), err)
	}
	return write(ctx, f, data, mode...)
}

// Clear empties the file or directory at path.
func (k *Facade) Clear(ctx context.Context, path string) error {
	f, err := k.file(path)
	if err != nil {
		return err
	}
	return Clear(ctx, f)
}

// Copy copies source onto target, recursing into directories.
func (k *Facade) Copy(ctx context.Context, source, target string) error {
	src, dst, err := k.pair(source, target)
	if err != nil {
		return err
	}
	if err := CopyTo(ctx, src, dst); err != nil {
		k.log.Warn("copy failed", "src", source, "dst", target, "error", err)
		return err
	}
	return nil
}

// Move copies source onto target and deletes source.
func (k *Facade) Move(ctx context.Context, source, target string) error {
	src, dst, err := k.pair(source, target)
	if err != nil {
		return err
	}
	if err := MoveTo(ctx, src, dst); err != nil {
		k.log.Warn("move failed", "src", source, "dst", target, "error", err)
		return err
	}
	return nil
}

func (k *Facade) pair(source, target string) (File, File, error) {
	src, err := k.file(source)
	if err != nil {
		return nil, nil, err
	}
	dst, err := k.file(target)
	if err != nil {
		return nil, nil, err
	}
	return src, dst, nil
}

// Rename renames the file at path and returns the file at its new name.
func (k *Facade) Rename(ctx context.Context, path, name string) (File, error) {
	f, err := k.file(path)
	if err != nil {
		return nil, err
	}
	return f.Rename(ctx, name)
}

// Find lists the files below the directory at path matching selector.
func (k *Facade) Find(ctx context.Context, path string, selector FileSelector, recursive bool) ([]FileInfo, error) {
	dir, err := k.file(path)
	if err != nil {
		return nil, err
	}
	return Find(ctx, dir, selector, recursive)
}

// Checksum returns the hex checksum of the file at path.
func (k *Facade) Checksum(ctx context.Context, path string, algorithm ChecksumAlgorithm) (string, error) {
	f, err := k.file(path)
	if err != nil {
		return "", err
	}
	return Checksum(ctx, f, algorithm)
}

// CheckPermission reports whether the grant covering path is held.
func (k *Facade) CheckPermission(ctx context.Context, path string) bool {
	f, err := k.file(path)
	if err != nil {
		return false
	}
	return f.CheckPermission(ctx)
}

// RequestPermission asks the facade's host for the grant covering path.
func (k *Facade) RequestPermission(ctx context.Context, path string, fn func(granted bool)) error {
	f, err := k.file(path)
	if err != nil {
		return err
	}
	return f.RequestPermission(ctx, k.host, fn)
}

// ReleasePermission gives the grant covering path back.
func (k *Facade) ReleasePermission(ctx context.Context, path string) bool {
	f, err := k.file(path)
	if err != nil {
		return false
	}
	return f.ReleasePermission(ctx)
}

// CheckOrRequestPermission runs fn(true) when the grant covering path is
// held and asks the facade's host otherwise.
func (k *Facade) CheckOrRequestPermission(ctx context.Context, path string, fn func(granted bool)) error {
	f, err := k.file(path)
	if err != nil {
		return err
	}
	return CheckOrRequestPermission(ctx, f, k.host, fn)
}

// Deliver hands the outcome of a consent flow shown by the facade's host to
// the waiting request.
func (k *Facade) Deliver(ctx context.Context, outcome Outcome) bool {
	return k.broker.Deliver(ctx, k.host, outcome)
}

// Close drops the host's pending requests and closes the grant store when
// it holds resources.
func (k *Facade) Close() error {
	if k.host != nil {
		k.broker.Detach(k.host)
	}
	if c, ok := k.broker.Grants().(io.Closer); ok {
		return c.Close()
	}
	return nil
}
