package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Dyastin-0/livechat/cipherbox"
	"github.com/Dyastin-0/livechat/codec"
	"github.com/google/uuid"
)

// MetadataExt is appended to a received file's path to name its caption sidecar.
const MetadataExt = ".metadata"

// ReceivedFile is a frame that passed every check and was written to disk.
type ReceivedFile struct {
	Path        string
	Kind        codec.Kind
	Size        int
	Name        string
	Caption     string
	CaptionPath string
}

type Receiver struct {
	dir   string
	proto *Proto
	box   cipherbox.Box
	stats *Stats
}

func NewReceiver(dir string, box cipherbox.Box, maxPayload int64, stats *Stats) *Receiver {
	if stats == nil {
		stats = NewStats()
	}

	return &Receiver{
		dir:   dir,
		proto: NewProto(maxPayload),
		box:   box,
		stats: stats,
	}
}

func (r *Receiver) Dir() string {
	return r.dir
}

func (r *Receiver) EnsureDir() error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fsError("mkdir", r.dir, err)
	}
	return nil
}

// Receive reads one frame from rd and persists it. Nothing is written unless the payload
// decrypts and sniffs to an allowed kind.
func (r *Receiver) Receive(rd io.Reader) (*ReceivedFile, error) {
	frame, err := r.proto.ReadFrame(rd)
	if err != nil {
		if !errors.Is(err, ErrEmptyStream) {
			r.stats.Rejected.Add(1)
		}
		return nil, err
	}

	data, err := r.box.Decrypt(frame.Payload)
	if err != nil {
		r.stats.Rejected.Add(1)
		return nil, err
	}

	kind := codec.Sniff(data)
	if !codec.IsAllowed(kind) {
		r.stats.Rejected.Add(1)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}

	received, err := r.persist(data, kind, frame.Caption)
	if err != nil {
		return nil, err
	}
	received.Name = frame.Name

	r.stats.Received.Add(1)
	r.stats.BytesIn.Add(int64(len(data)))

	return received, nil
}

// persist writes the sidecar first and renames the media file into place last, so anything
// watching the directory sees a complete file with its caption already present.
func (r *Receiver) persist(data []byte, kind codec.Kind, caption string) (*ReceivedFile, error) {
	name := fmt.Sprintf("%s.%s", uuid.NewString(), kind.Ext())
	path := filepath.Join(r.dir, name)

	received := &ReceivedFile{
		Path:    path,
		Kind:    kind,
		Size:    len(data),
		Caption: caption,
	}

	if caption != "" {
		received.CaptionPath = path + MetadataExt
		if err := os.WriteFile(received.CaptionPath, []byte(caption), 0644); err != nil {
			os.Remove(received.CaptionPath)
			return nil, fsError("write", received.CaptionPath, err)
		}
	}

	if err := writeAtomic(r.dir, path, data); err != nil {
		if received.CaptionPath != "" {
			os.Remove(received.CaptionPath)
		}
		return nil, err
	}

	return received, nil
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".incoming-*")
	if err != nil {
		return fsError("create", dir, err)
	}

	merr := tmp.Chmod(0644)
	_, werr := tmp.Write(data)
	cerr := tmp.Close()

	if err := errors.Join(merr, werr, cerr); err != nil {
		os.Remove(tmp.Name())
		return fsError("write", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fsError("rename", path, err)
	}

	return nil
}
