package binimex

import (
	"bytes"
	"errors"
	"testing"

	"github.com/foesim/simcore/internal/core/ecs"
	"github.com/foesim/simcore/internal/crypto"
	"github.com/foesim/simcore/internal/imex"
)

func sampleData() *imex.WorldData {
	return &imex.WorldData{
		Groups: []imex.GroupData{
			{Name: ecs.PersistentGroupName, GroupValue: ecs.PersistentGroupValue, NextFreeIndex: 15, Recycled: []ecs.IndexID{8, 4, 10}},
			{Name: "Zone", GroupValue: 2, NextFreeIndex: 3},
		},
		Pools: []imex.PoolData{{
			Name:     "position",
			DataSize: 3,
			Records: []imex.Record{
				{ID: ecs.NewID(ecs.PersistentGroup, 1), Data: []byte{1, 2, 3}},
				{ID: ecs.NewID(ecs.GroupFromValue(2), 2), Data: []byte{4, 5, 6}},
			},
		}},
		Names: []imex.NameData{{ID: ecs.NewID(ecs.PersistentGroup, 1), Name: "spawn"}},
	}
}

func TestIDEncoding(t *testing.T) {
	w := NewWriter()
	WriteID(w, ecs.NewID(ecs.PersistentGroup, 7))
	WriteID(w, ecs.NewID(ecs.GroupFromValue(3), 9))
	want := []byte{
		0xFF, 0xFF, 0xFF, 0xFF, 7, 0, 0, 0,
		3, 0, 0, 0, 9, 0, 0, 0,
	}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("encoded % x, want % x", w.Bytes(), want)
	}

	r := NewReader(w.Bytes())
	if id := ReadID(r); id != ecs.NewID(ecs.PersistentGroup, 7) {
		t.Errorf("first id = %v", id)
	}
	if id := ReadID(r); id != ecs.NewID(ecs.GroupFromValue(3), 9) {
		t.Errorf("second id = %v", id)
	}
	if ReadID(r); !errors.Is(r.Err(), ErrTruncated) {
		t.Error("read past end not reported")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Format{}.Marshal(sampleData())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("SIMC\x01\x00\x00\x00")) {
		t.Errorf("header = % x", data[:8])
	}
	d, err := Format{}.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := sampleData()
	if len(d.Groups) != 2 || d.Groups[0].GroupValue != ecs.PersistentGroupValue || d.Groups[1].Name != "Zone" {
		t.Errorf("groups = %+v", d.Groups)
	}
	if got := d.Groups[0].Recycled; len(got) != 3 || got[0] != 8 || got[1] != 4 || got[2] != 10 {
		t.Errorf("recycled = %v", got)
	}
	if len(d.Pools) != 1 || len(d.Pools[0].Records) != 2 {
		t.Fatalf("pools = %+v", d.Pools)
	}
	for i, rec := range d.Pools[0].Records {
		w := want.Pools[0].Records[i]
		if rec.ID != w.ID || !bytes.Equal(rec.Data, w.Data) {
			t.Errorf("record %d = %+v, want %+v", i, rec, w)
		}
	}
	if len(d.Names) != 1 || d.Names[0].Name != "spawn" {
		t.Errorf("names = %+v", d.Names)
	}
}

func TestSealed(t *testing.T) {
	key, err := crypto.DeriveKey([]byte("shared secret"), nil, "snapshot")
	if err != nil {
		t.Fatal(err)
	}
	data, err := Format{Key: key}.Marshal(sampleData())
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("position")) {
		t.Error("sealed snapshot leaks pool names")
	}
	if _, err := (Format{}).Unmarshal(data); !errors.Is(err, ErrSealed) {
		t.Errorf("unmarshal without key: %v", err)
	}
	other, _ := crypto.DeriveKey([]byte("other"), nil, "snapshot")
	if _, err := (Format{Key: other}).Unmarshal(data); !errors.Is(err, crypto.ErrOpen) {
		t.Errorf("unmarshal with wrong key: %v", err)
	}
	d, err := Format{Key: key}.Unmarshal(data)
	if err != nil || len(d.Pools) != 1 {
		t.Fatalf("unmarshal with key: %v", err)
	}
}

func TestSigned(t *testing.T) {
	kp, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatal(err)
	}
	signer := Format{Signer: kp.Private}
	verifier := Format{Verifier: kp.Public}

	data, err := signer.Marshal(sampleData())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("SIMC\x01\x00\x02\x00")) {
		t.Errorf("header = % x", data[:8])
	}
	d, err := verifier.Unmarshal(data)
	if err != nil || len(d.Pools) != 1 || len(d.Pools[0].Records) != 2 {
		t.Fatalf("verified unmarshal: %v", err)
	}
	if _, err := (Format{}).Unmarshal(data); err != nil {
		t.Errorf("unmarshal without verifier: %v", err)
	}

	for _, at := range []int{2, 6, 12, len(data) - 1} {
		tampered := bytes.Clone(data)
		tampered[at] ^= 0x01
		if _, err := verifier.Unmarshal(tampered); err == nil {
			t.Errorf("byte %d altered: accepted", at)
		}
	}
	tampered := bytes.Clone(data)
	tampered[20] ^= 0x01
	if _, err := verifier.Unmarshal(tampered); !errors.Is(err, crypto.ErrSignature) {
		t.Errorf("body altered: %v", err)
	}

	unsigned, _ := Format{}.Marshal(sampleData())
	if _, err := verifier.Unmarshal(unsigned); !errors.Is(err, ErrUnsigned) {
		t.Errorf("unsigned with verifier: %v", err)
	}

	other, _ := crypto.GenerateSigningKey()
	if _, err := (Format{Verifier: other.Public}).Unmarshal(data); !errors.Is(err, crypto.ErrSignature) {
		t.Errorf("wrong verifier: %v", err)
	}
	if _, err := verifier.Unmarshal(data[:20]); !errors.Is(err, ErrTruncated) {
		t.Errorf("short signed file: %v", err)
	}
	if _, err := (Format{Signer: kp.Private[:10]}).Marshal(sampleData()); !errors.Is(err, crypto.ErrKeySize) {
		t.Errorf("short signer: %v", err)
	}
}

func TestSealedAndSigned(t *testing.T) {
	key, _ := crypto.DeriveKey([]byte("shared secret"), nil, "snapshot")
	kp, err := crypto.GenerateSigningKey()
	if err != nil {
		t.Fatal(err)
	}
	data, err := Format{Key: key, Signer: kp.Private}.Marshal(sampleData())
	if err != nil {
		t.Fatal(err)
	}
	if data[6] != byte(flagSealed|flagSigned) {
		t.Errorf("flags = %#x", data[6])
	}
	// Signature failure wins over a missing key.
	tampered := bytes.Clone(data)
	tampered[len(tampered)-70] ^= 0x01
	if _, err := (Format{Verifier: kp.Public}).Unmarshal(tampered); !errors.Is(err, crypto.ErrSignature) {
		t.Errorf("tampered sealed file: %v", err)
	}
	d, err := Format{Key: key, Verifier: kp.Public}.Unmarshal(data)
	if err != nil || len(d.Names) != 1 {
		t.Fatalf("unmarshal: %v", err)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	good, _ := Format{}.Marshal(sampleData())
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrMagic},
		{"magic", []byte("NOPE\x01\x00\x00\x00"), ErrMagic},
		{"version", []byte("SIMC\x09\x00\x00\x00"), ErrVersion},
		{"truncated", good[:len(good)-3], ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (Format{}).Unmarshal(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFormatImportExport(t *testing.T) {
	src := ecs.NewWorld(nil)
	cp, _ := ecs.NewComponentPool(ecs.ComponentPoolOptions{DataSize: 1})
	src.Registry().Register("tag", cp)
	a, _ := src.CreateEntity(ecs.PersistentGroup)
	b, _ := src.CreateEntity(ecs.PersistentGroup)
	cp.Insert(a, []byte{'a'})
	cp.Insert(b, []byte{'b'})
	cp.Maintenance()

	var buf bytes.Buffer
	if err := (Format{}).Export(&buf, src); err != nil {
		t.Fatal(err)
	}

	dst := ecs.NewWorld(nil)
	dcp, _ := ecs.NewComponentPool(ecs.ComponentPoolOptions{DataSize: 1})
	dst.Registry().Register("tag", dcp)
	if err := (Format{}).Import(&buf, dst, nil); err != nil {
		t.Fatal(err)
	}
	dcp.Maintenance()
	if !dcp.Exist(a) || !dcp.Exist(b) {
		t.Error("records missing after import")
	}
	if id, _ := dst.Groups().Persistent().Generate(); id.Index() != 3 {
		t.Errorf("next generated = %v", id)
	}
}
