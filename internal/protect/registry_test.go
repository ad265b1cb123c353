package protect

import "testing"

func memberTable(members map[string][2]string) func(string) (string, string, bool) {
	return func(userID string) (string, string, bool) {
		m, ok := members[userID]
		if !ok {
			return "", "", false
		}
		return m[0], m[1], true
	}
}

func TestConfiguredOwnerAlwaysProtected(t *testing.T) {
	r := NewRegistry("owner-1", "by_bytes", nil)

	if !r.IsProtected("owner-1", nil) {
		t.Fatal("configured owner must be protected without guild context")
	}
	if !r.IsProtected("owner-1", &GuildContext{GuildID: "any"}) {
		t.Fatal("configured owner must be protected in every guild")
	}
}

func TestManualAllowlistAddRemove(t *testing.T) {
	r := NewRegistry("owner-1", "by_bytes", nil)

	if !r.Add("u42", KindManual) {
		t.Fatal("first add must report true")
	}
	if !r.IsProtected("u42", nil) {
		t.Fatal("allowlisted user must be protected")
	}
	if r.Add("u42", KindManual) {
		t.Fatal("repeat add of same kind must report false")
	}
	if !r.Add("u42", KindServerCreator) {
		t.Fatal("kind change must count as an addition")
	}

	if !r.Remove("u42") {
		t.Fatal("remove of existing entry must report true")
	}
	if r.IsProtected("u42", nil) {
		t.Fatal("removed user must no longer be protected")
	}
	if r.Remove("u42") {
		t.Fatal("double remove must report false")
	}
}

func TestServerCreatorProtected(t *testing.T) {
	r := NewRegistry("", "by_bytes", nil)
	r.Add("creator-9", KindServerCreator)

	if !r.IsProtected("creator-9", &GuildContext{GuildID: "g1"}) {
		t.Fatal("server creator must be protected")
	}
}

func TestGuildOwnerProtected(t *testing.T) {
	r := NewRegistry("", "by_bytes", nil)
	ctx := &GuildContext{GuildID: "g1", OwnerID: "guild-owner"}

	if !r.IsProtected("guild-owner", ctx) {
		t.Fatal("guild owner must be protected")
	}
	if r.IsProtected("guild-owner", nil) {
		t.Fatal("guild owner protection requires guild context")
	}
}

func TestReservedHandleCaseInsensitive(t *testing.T) {
	r := NewRegistry("", "by_bytes", nil)
	ctx := &GuildContext{
		GuildID: "g1",
		LookupMember: memberTable(map[string][2]string{
			"u1": {"By_Bytes", "someone"},
			"u2": {"other", "BY_BYTES"},
			"u3": {"regular", "Regular User"},
		}),
	}

	if !r.IsProtected("u1", ctx) {
		t.Fatal("reserved username must protect")
	}
	if !r.IsProtected("u2", ctx) {
		t.Fatal("reserved display name must protect")
	}
	if r.IsProtected("u3", ctx) {
		t.Fatal("regular member must not be protected")
	}
}

type fakeStore struct {
	saved   map[string]string
	deleted []string
}

func (f *fakeStore) SaveProtectedUser(userID, kind string) error {
	f.saved[userID] = kind
	return nil
}

func (f *fakeStore) DeleteProtectedUser(userID string) error {
	f.deleted = append(f.deleted, userID)
	delete(f.saved, userID)
	return nil
}

func (f *fakeStore) LoadProtectedUsers() (map[string]string, error) {
	out := make(map[string]string, len(f.saved))
	for k, v := range f.saved {
		out[k] = v
	}
	return out, nil
}

func TestRegistryPersistsThroughStore(t *testing.T) {
	store := &fakeStore{saved: make(map[string]string)}

	r := NewRegistry("", "by_bytes", store)
	r.Add("u7", KindManual)

	if store.saved["u7"] != "manual" {
		t.Fatalf("expected persisted manual entry, got %v", store.saved)
	}

	// A new registry backed by the same store sees the entry.
	r2 := NewRegistry("", "by_bytes", store)
	if !r2.IsProtected("u7", nil) {
		t.Fatal("entry must survive a registry restart")
	}
}
