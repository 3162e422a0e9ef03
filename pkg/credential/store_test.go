package credential

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(StoreConfig{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func sampleRecord(address string) *Record {
	r := &Record{
		Address:       address,
		DisplayName:   "Living Room",
		RegistKeyHex8: "8830739c",
	}
	r.RegistKey16 = [16]byte{0x88, 0x30, 0x73, 0x9c}
	r.Morning16 = [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	r.PSNAccountLE8 = [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	return r
}

func TestUpsertCompleteAndReloadByteIdentical(t *testing.T) {
	s := newTestStore(t)
	r := sampleRecord("192.168.1.10")

	if err := s.UpsertComplete(r); err != nil {
		t.Fatal(err)
	}

	got := s.Find("192.168.1.10")
	if got == nil {
		t.Fatal("expected to find record")
	}
	if *got != *r {
		t.Errorf("reloaded record differs: got %+v, want %+v", got, r)
	}
}

func TestUpsertSupersedesExisting(t *testing.T) {
	s := newTestStore(t)
	r1 := sampleRecord("192.168.1.10")
	if err := s.UpsertComplete(r1); err != nil {
		t.Fatal(err)
	}
	r2 := sampleRecord("192.168.1.10")
	r2.DisplayName = "Bedroom"
	if err := s.UpsertComplete(r2); err != nil {
		t.Fatal(err)
	}

	got := s.Find("192.168.1.10")
	if got.DisplayName != "Bedroom" {
		t.Errorf("expected superseded record, got %+v", got)
	}
	if s.Len() != 1 {
		t.Errorf("expected exactly one record, got %d", s.Len())
	}
}

func TestLoadAllFreshDirectory(t *testing.T) {
	s := newTestStore(t)
	if err := s.LoadAll(); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty table, got %d", s.Len())
	}
}

func TestLoadAllMigratesLegacyRaw4(t *testing.T) {
	dir := t.TempDir()

	// Hand-write a legacy version-1 (raw 4-byte key) record file.
	addr := "192.168.1.20"
	name := []byte("Legacy Console")
	key := []byte{0x88, 0x30, 0x73, 0x9c}
	morning := [16]byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}
	psn := [8]byte{1, 1, 1, 1, 1, 1, 1, 1}

	buf := []byte{versionLegacyRaw4}
	buf = append(buf, byte(len(addr)))
	buf = append(buf, []byte(addr)...)
	buf = append(buf, byte(len(name)))
	buf = append(buf, name...)
	buf = append(buf, byte(len(key)))
	buf = append(buf, key...)
	buf = append(buf, morning[:]...)
	buf = append(buf, psn[:]...)

	if err := os.WriteFile(filepath.Join(dir, addr+".reg"), buf, 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(StoreConfig{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.LoadAll(); err != nil {
		t.Fatal(err)
	}

	rec := s.Find(addr)
	if rec == nil {
		t.Fatal("expected migrated record to be present")
	}
	if rec.RegistKeyHex8 != "8830739c" {
		t.Errorf("got hex8 %q, want 8830739c", rec.RegistKeyHex8)
	}
	if !rec.Valid() {
		t.Errorf("expected migrated record to be valid")
	}

	// The file on disk should now be rewritten to CurrentVersion.
	raw, err := os.ReadFile(filepath.Join(dir, addr+".reg"))
	if err != nil {
		t.Fatal(err)
	}
	if raw[0] != CurrentVersion {
		t.Errorf("expected on-disk version %d after migration, got %d", CurrentVersion, raw[0])
	}
}

func TestLoadAllKeepsUnrepairableAsPresentButInvalid(t *testing.T) {
	dir := t.TempDir()
	addr := "192.168.1.30"

	buf := []byte{versionLegacyDoubleHex16}
	buf = append(buf, byte(len(addr)))
	buf = append(buf, []byte(addr)...)
	buf = append(buf, 0) // empty display name
	badField := []byte("ZZZZZZZZZZZZZZZZ")
	buf = append(buf, byte(len(badField)))
	buf = append(buf, badField...)
	buf = append(buf, make([]byte, 16)...) // morning
	buf = append(buf, make([]byte, 8)...)  // psn

	if err := os.WriteFile(filepath.Join(dir, addr+".reg"), buf, 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := NewStore(StoreConfig{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.LoadAll(); err != nil {
		t.Fatal(err)
	}

	rec := s.Find(addr)
	if rec == nil {
		t.Fatal("expected unrepairable record to still be present in memory")
	}
	if rec.Valid() {
		t.Error("expected unrepairable record to be invalid")
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	r := sampleRecord("192.168.1.40")
	if err := s.UpsertComplete(r); err != nil {
		t.Fatal(err)
	}
	if err := s.Remove("192.168.1.40"); err != nil {
		t.Fatal(err)
	}
	if s.Find("192.168.1.40") != nil {
		t.Error("expected record to be removed")
	}
	if _, err := os.Stat(s.recordPath("192.168.1.40")); !os.IsNotExist(err) {
		t.Error("expected file to be deleted")
	}
}

func TestGetUnifiedAndSessionCredentials(t *testing.T) {
	s := newTestStore(t)
	r := sampleRecord("192.168.1.50")
	if err := s.UpsertComplete(r); err != nil {
		t.Fatal(err)
	}

	u, err := s.GetUnified("192.168.1.50")
	if err != nil {
		t.Fatal(err)
	}
	if !u.Valid || u.Hex8 != "8830739c" {
		t.Errorf("unexpected unified view: %+v", u)
	}

	key, morning, err := s.GetSessionCredentials("192.168.1.50")
	if err != nil {
		t.Fatal(err)
	}
	if key != r.RegistKey16 || morning != r.Morning16 {
		t.Error("session credentials mismatch")
	}
}

func TestGetUnifiedNotRegistered(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetUnified("10.0.0.1"); err == nil {
		t.Fatal("expected not-registered error")
	}
}
