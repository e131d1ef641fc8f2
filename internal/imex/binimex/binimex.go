// Package binimex reads and writes simulation snapshots in a compact little-endian
// binary format, optionally sealed with XChaCha20-Poly1305 and signed with Ed25519.
//
// Layout: "SIMC", version u16, flags u16, then the body (sealed when flagSealed is
// set). When flagSigned is set a 64-byte signature over everything before it trails
// the body. The body holds groups, pools and editor names, each list prefixed by a u32
// count. IDs are written as a group value u32 (PersistentMarker for the persistent
// group) followed by the index u32.
package binimex

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/foesim/simcore/internal/core/ecs"
	"github.com/foesim/simcore/internal/crypto"
	"github.com/foesim/simcore/internal/imex"
	"golang.org/x/crypto/ed25519"
)

const (
	Extension = ".simc"
	Version   = 1

	// PersistentMarker stands in for the persistent group value on disk.
	PersistentMarker uint32 = 0xFFFFFFFF

	flagSealed uint16 = 1 << 0
	flagSigned uint16 = 1 << 1
)

var (
	magic = [4]byte{'S', 'I', 'M', 'C'}

	ErrMagic    = errors.New("binimex: not a snapshot")
	ErrVersion  = errors.New("binimex: unsupported version")
	ErrSealed   = errors.New("binimex: snapshot is sealed and no key is set")
	ErrUnsigned = errors.New("binimex: snapshot is not signed")
)

func WriteID(w *Writer, id ecs.ID) {
	if id.Group() == ecs.PersistentGroup {
		w.WriteDU(PersistentMarker)
	} else {
		w.WriteDU(id.GroupValue())
	}
	w.WriteDU(id.Index())
}

func ReadID(r *Reader) ecs.ID {
	group := r.ReadDU()
	index := r.ReadDU()
	if group == PersistentMarker {
		return ecs.NewID(ecs.PersistentGroup, index)
	}
	return ecs.NewID(ecs.GroupFromValue(group), index)
}

// WriteIndexes writes an allocator's next index and recycled queue.
func WriteIndexes(w *Writer, next ecs.IndexID, recycled []ecs.IndexID) {
	w.WriteDU(next)
	w.WriteDU(uint32(len(recycled)))
	for _, index := range recycled {
		w.WriteDU(index)
	}
}

func ReadIndexes(r *Reader) (ecs.IndexID, []ecs.IndexID) {
	next := r.ReadDU()
	n := int(r.ReadDU())
	if r.Err() != nil || n*4 > r.Remaining() {
		r.need(n * 4)
		return 0, nil
	}
	recycled := make([]ecs.IndexID, n)
	for i := range recycled {
		recycled[i] = r.ReadDU()
	}
	return next, recycled
}

func encodeBody(d *imex.WorldData) []byte {
	w := NewWriter()

	w.WriteDU(uint32(len(d.Groups)))
	for _, g := range d.Groups {
		w.WriteS(g.Name)
		if g.GroupValue == ecs.PersistentGroupValue {
			w.WriteDU(PersistentMarker)
		} else {
			w.WriteDU(g.GroupValue)
		}
		WriteIndexes(w, g.NextFreeIndex, g.Recycled)
	}

	w.WriteDU(uint32(len(d.Pools)))
	for _, p := range d.Pools {
		w.WriteS(p.Name)
		w.WriteDU(uint32(p.DataSize))
		w.WriteDU(uint32(len(p.Records)))
		for _, rec := range p.Records {
			WriteID(w, rec.ID)
			w.WriteBytes(rec.Data)
		}
	}

	w.WriteDU(uint32(len(d.Names)))
	for _, n := range d.Names {
		WriteID(w, n.ID)
		w.WriteS(n.Name)
	}
	return w.Bytes()
}

func decodeBody(body []byte) (*imex.WorldData, error) {
	r := NewReader(body)
	d := &imex.WorldData{}

	groups := int(r.ReadDU())
	for i := 0; i < groups && r.Err() == nil; i++ {
		g := imex.GroupData{Name: r.ReadS(), GroupValue: r.ReadDU()}
		if g.GroupValue == PersistentMarker {
			g.GroupValue = ecs.PersistentGroupValue
		}
		g.NextFreeIndex, g.Recycled = ReadIndexes(r)
		d.Groups = append(d.Groups, g)
	}

	pools := int(r.ReadDU())
	for i := 0; i < pools && r.Err() == nil; i++ {
		p := imex.PoolData{Name: r.ReadS(), DataSize: int(r.ReadDU())}
		records := int(r.ReadDU())
		for j := 0; j < records && r.Err() == nil; j++ {
			id := ReadID(r)
			p.Records = append(p.Records, imex.Record{ID: id, Data: r.ReadBytes(p.DataSize)})
		}
		d.Pools = append(d.Pools, p)
	}

	names := int(r.ReadDU())
	for i := 0; i < names && r.Err() == nil; i++ {
		id := ReadID(r)
		d.Names = append(d.Names, imex.NameData{ID: id, Name: r.ReadS()})
	}

	if err := r.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

// Format implements imex.Exporter and imex.Importer. A non-nil Key seals exports
// and opens sealed imports. A non-nil Signer signs exports. A non-nil Verifier
// makes imports require a valid signature; without one a signature is skipped.
type Format struct {
	Key      []byte
	Signer   ed25519.PrivateKey
	Verifier ed25519.PublicKey
}

func (Format) Extension() string { return Extension }

// Marshal encodes d as a complete snapshot file.
func (f Format) Marshal(d *imex.WorldData) ([]byte, error) {
	body := encodeBody(d)
	var flags uint16
	if f.Key != nil {
		sealed, err := crypto.Seal(f.Key, body)
		if err != nil {
			return nil, fmt.Errorf("binimex: seal: %w", err)
		}
		body = sealed
		flags |= flagSealed
	}
	if f.Signer != nil {
		if len(f.Signer) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("binimex: sign: %w", crypto.ErrKeySize)
		}
		flags |= flagSigned
	}

	w := NewWriter()
	w.WriteBytes(magic[:])
	w.WriteH(Version)
	w.WriteH(flags)
	w.WriteBytes(body)
	if f.Signer != nil {
		w.WriteBytes(crypto.Sign(f.Signer, w.Bytes()))
	}
	return w.Bytes(), nil
}

// Unmarshal decodes a snapshot file produced by Marshal. The signature is checked
// before the body is opened or decoded.
func (f Format) Unmarshal(data []byte) (*imex.WorldData, error) {
	r := NewReader(data)
	if !bytes.Equal(r.ReadBytes(len(magic)), magic[:]) {
		return nil, ErrMagic
	}
	if v := r.ReadH(); v != Version {
		if r.Err() != nil {
			return nil, r.Err()
		}
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}
	flags := r.ReadH()
	if err := r.Err(); err != nil {
		return nil, err
	}
	body := data[len(data)-r.Remaining():]

	if flags&flagSigned != 0 {
		if len(body) < ed25519.SignatureSize {
			return nil, ErrTruncated
		}
		signed := data[:len(data)-ed25519.SignatureSize]
		sig := data[len(signed):]
		if f.Verifier != nil {
			if err := crypto.Verify(f.Verifier, signed, sig); err != nil {
				return nil, fmt.Errorf("binimex: %w", err)
			}
		}
		body = body[:len(body)-ed25519.SignatureSize]
	} else if f.Verifier != nil {
		return nil, ErrUnsigned
	}

	if flags&flagSealed != 0 {
		if f.Key == nil {
			return nil, ErrSealed
		}
		opened, err := crypto.Open(f.Key, body)
		if err != nil {
			return nil, fmt.Errorf("binimex: open: %w", err)
		}
		body = opened
	}
	return decodeBody(body)
}

func (f Format) Export(w io.Writer, world *ecs.World) error {
	data, err := f.Marshal(imex.Capture(world))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (f Format) Import(r io.Reader, world *ecs.World, tr *ecs.GroupTranslator) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("binimex: read: %w", err)
	}
	d, err := f.Unmarshal(data)
	if err != nil {
		return err
	}
	return imex.Apply(world, d, tr)
}
