package countermeasure

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bytedacia/guardian/internal/backup"
	"github.com/bytedacia/guardian/internal/config"
	"github.com/bytedacia/guardian/internal/models"
	"github.com/bytedacia/guardian/internal/platform"
	"github.com/bytedacia/guardian/internal/protect"
	"github.com/bytedacia/guardian/internal/restore"
	"github.com/bytedacia/guardian/internal/tracker"
)

type fakeClient struct {
	mu sync.Mutex

	ownerID  string
	channels []platform.Channel
	roles    []platform.Role
	members  map[string]*platform.Member
	roleSets map[string][]string
	messages map[string][]platform.Message

	hidden      map[string][]string
	restoredVis []string
	rolePerms   map[string]int64
	banned      []string
	kicked      []string
	banErr      map[string]error
	snapshotErr error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		members:   make(map[string]*platform.Member),
		roleSets:  make(map[string][]string),
		messages:  make(map[string][]platform.Message),
		hidden:    make(map[string][]string),
		rolePerms: make(map[string]int64),
		banErr:    make(map[string]error),
	}
}

func (f *fakeClient) GuildName(guildID string) string             { return "Test Guild" }
func (f *fakeClient) GuildOwnerID(guildID string) (string, error) { return f.ownerID, nil }

func (f *fakeClient) GuildChannels(guildID string) ([]platform.Channel, error) {
	return append([]platform.Channel(nil), f.channels...), nil
}

func (f *fakeClient) GuildRoles(guildID string) ([]platform.Role, error) {
	out := make([]platform.Role, len(f.roles))
	copy(out, f.roles)
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range out {
		if p, ok := f.rolePerms[out[i].ID]; ok {
			out[i].Permissions = p
		}
	}
	return out, nil
}

func (f *fakeClient) RoleMembers(guildID, roleID string) ([]string, error) {
	return f.roleSets[roleID], nil
}

func (f *fakeClient) GetMember(guildID, userID string) (*platform.Member, error) {
	m, ok := f.members[userID]
	if !ok {
		return nil, errors.New("unknown member")
	}
	return m, nil
}

func (f *fakeClient) MemberNames(guildID string) []string {
	var out []string
	for _, m := range f.members {
		out = append(out, m.Username)
	}
	return out
}

func (f *fakeClient) HideChannel(guildID, channelID string, exceptions []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden[channelID] = append([]string(nil), exceptions...)
	return nil
}

func (f *fakeClient) RestoreChannelVisibility(guildID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.hidden, channelID)
	f.restoredVis = append(f.restoredVis, channelID)
	return nil
}

func (f *fakeClient) SetRolePermissions(guildID, roleID string, permissions int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rolePerms[roleID] = permissions
	return nil
}

func (f *fakeClient) BanMember(guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.banErr[userID]; err != nil {
		return err
	}
	f.banned = append(f.banned, userID)
	return nil
}

func (f *fakeClient) KickMember(guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicked = append(f.kicked, userID)
	return nil
}

func (f *fakeClient) RecentMessages(channelID string, limit int) ([]platform.Message, error) {
	return f.messages[channelID], nil
}

func (f *fakeClient) SnapshotGuildStructure(guildID string) (*backup.Snapshot, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	return backup.NewSnapshot(guildID, "Test Guild", f.ownerID, len(f.members)), nil
}

type memStore struct {
	mu    sync.Mutex
	snaps map[string]*backup.Snapshot
}

func (s *memStore) Persist(snap *backup.Snapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snaps == nil {
		s.snaps = make(map[string]*backup.Snapshot)
	}
	s.snaps[snap.Ref] = snap
	return snap.Ref, nil
}

func (s *memStore) Load(handle string) (*backup.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[handle]
	if !ok {
		return nil, errors.New("not found")
	}
	return snap, nil
}

type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (s *memBlobStore) SaveEncryptedChannel(channelID, guildID, channelName string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blobs == nil {
		s.blobs = make(map[string][]byte)
	}
	s.blobs[channelID] = append([]byte(nil), blob...)
	return nil
}

func (s *memBlobStore) DeleteEncryptedChannel(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, channelID)
	return nil
}

func testOrchestrator(client *fakeClient) (*Orchestrator, *protect.Registry, *tracker.Tracker, *restore.Scheduler) {
	cfg := config.DefaultConfig()
	cfg.Bot.OwnerID = "owner-1"
	th := config.DefaultThresholds()
	registry := protect.NewRegistry(cfg.Bot.OwnerID, cfg.Defense.ProtectedHandle, nil)
	activity := tracker.NewTracker()
	scheduler := restore.NewScheduler()
	o := NewOrchestrator(client, registry, activity, &memStore{}, scheduler, cfg, th)
	return o, registry, activity, scheduler
}

func TestExecuteRunsAllPhases(t *testing.T) {
	client := newFakeClient()
	client.ownerID = "guild-owner"
	client.channels = []platform.Channel{
		{ID: "c1", Name: "general", Type: platform.ChannelText},
		{ID: "c2", Name: "lounge", Type: platform.ChannelVoice},
		{ID: "c3", Name: "info", Type: platform.ChannelCategory},
	}
	client.roles = []platform.Role{
		{ID: "r-everyone", Name: "@everyone", IsEveryone: true, Permissions: 104324673},
		{ID: "r1", Name: "Members", Permissions: 104324673},
		{ID: "r2", Name: "Bots", Managed: true, Permissions: 8},
	}

	o, _, _, scheduler := testOrchestrator(client)
	defer scheduler.Stop()

	sess := models.NewCombatSession("g1", time.Now())
	sig := models.NewThreatSignal(models.SignalBotRaid, "bot raid detected", 9)

	if err := o.Execute(sess, sig); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if sess.BackupRef == "" {
		t.Error("expected a backup ref on the session")
	}
	if _, ok := client.hidden["c1"]; !ok {
		t.Error("text channel should be hidden")
	}
	if _, ok := client.hidden["c2"]; ok {
		t.Error("voice channel must not be hidden")
	}
	if _, ok := client.hidden["c3"]; ok {
		t.Error("category must not be hidden")
	}
	if got := client.rolePerms["r1"]; got != 0 {
		t.Errorf("role r1 permissions = %d, want 0", got)
	}
	if _, frozen := client.rolePerms["r-everyone"]; frozen {
		t.Error("everyone role must not be frozen")
	}
	if _, frozen := client.rolePerms["r2"]; frozen {
		t.Error("managed role must not be frozen")
	}
	if !scheduler.Pending("g1") {
		t.Error("restore job should be pending after freeze")
	}
	if !sess.Countermeasures[MeasureRateLimiting] || !sess.Countermeasures[MeasureAutoBan] {
		t.Errorf("countermeasures not recorded: %v", sess.Countermeasures)
	}
}

func TestFreezeSkipsRolesWithProtectedMembers(t *testing.T) {
	client := newFakeClient()
	client.ownerID = "guild-owner"
	client.roles = []platform.Role{
		{ID: "r1", Name: "Staff", Permissions: 8},
		{ID: "r2", Name: "Members", Permissions: 1024},
	}
	client.roleSets["r1"] = []string{"vip-user"}
	client.members["vip-user"] = &platform.Member{UserID: "vip-user", Username: "vip"}

	o, registry, _, scheduler := testOrchestrator(client)
	defer scheduler.Stop()
	registry.Add("vip-user", protect.KindManual)

	frozen := o.FreezePermissions("g1")
	if frozen != 1 {
		t.Fatalf("frozen = %d, want 1", frozen)
	}
	if _, ok := client.rolePerms["r1"]; ok {
		t.Error("role holding a protected member must keep its permissions")
	}
	if got := client.rolePerms["r2"]; got != 0 {
		t.Errorf("role r2 permissions = %d, want 0", got)
	}
}

func TestPermissionSnapshotRestoresExactBitmasks(t *testing.T) {
	client := newFakeClient()
	client.roles = []platform.Role{
		{ID: "r1", Name: "Members", Permissions: 104324673},
		{ID: "r2", Name: "Staff", Permissions: 268435456},
	}

	o, _, _, scheduler := testOrchestrator(client)
	defer scheduler.Stop()

	o.FreezePermissions("g1")
	o.ApplyPermissionSnapshot("g1", map[string]int64{"r1": 104324673, "r2": 268435456, "r-gone": 42})

	if got := client.rolePerms["r1"]; got != 104324673 {
		t.Errorf("r1 restored to %d, want 104324673", got)
	}
	if got := client.rolePerms["r2"]; got != 268435456 {
		t.Errorf("r2 restored to %d, want 268435456", got)
	}
	if _, ok := client.rolePerms["r-gone"]; ok {
		t.Error("deleted role must be skipped on restore")
	}
}

func TestLockdownIdempotent(t *testing.T) {
	client := newFakeClient()
	client.channels = []platform.Channel{
		{ID: "c1", Name: "general", Type: platform.ChannelText},
	}

	o, _, _, scheduler := testOrchestrator(client)
	defer scheduler.Stop()

	if got := o.Lockdown("g1"); got != 1 {
		t.Fatalf("first lockdown hid %d channels, want 1", got)
	}
	if got := o.Lockdown("g1"); got != 1 {
		t.Fatalf("second lockdown reported %d channels, want 1", got)
	}
}

func TestLockdownExceptionsIncludeProtectedUsers(t *testing.T) {
	client := newFakeClient()
	client.ownerID = "guild-owner"
	client.channels = []platform.Channel{
		{ID: "c1", Name: "general", Type: platform.ChannelText},
	}

	o, registry, _, scheduler := testOrchestrator(client)
	defer scheduler.Stop()
	registry.Add("vip-user", protect.KindManual)

	o.Lockdown("g1")

	want := map[string]bool{"owner-1": true, "guild-owner": true, "vip-user": true}
	got := client.hidden["c1"]
	if len(got) != len(want) {
		t.Fatalf("exceptions = %v, want ids %v", got, want)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected exception %s", id)
		}
	}
}

func TestAutoBanSparesProtectedAdminsAndAgedAccounts(t *testing.T) {
	client := newFakeClient()
	client.ownerID = "guild-owner"
	now := time.Now()

	client.members["fresh"] = &platform.Member{UserID: "fresh", AccountCreatedAt: now.Add(-time.Hour)}
	client.members["aged"] = &platform.Member{UserID: "aged", AccountCreatedAt: now.Add(-30 * 24 * time.Hour)}
	client.members["admin"] = &platform.Member{UserID: "admin", AccountCreatedAt: now.Add(-time.Hour), IsAdmin: true}
	client.members["vip"] = &platform.Member{UserID: "vip", AccountCreatedAt: now.Add(-time.Hour)}
	client.members["flaky"] = &platform.Member{UserID: "flaky", AccountCreatedAt: now.Add(-time.Hour)}
	client.members["fresh2"] = &platform.Member{UserID: "fresh2", AccountCreatedAt: now.Add(-2 * time.Hour)}
	client.members["ghost"] = &platform.Member{
		UserID: "ghost", AccountCreatedAt: now.Add(-60 * 24 * time.Hour), DefaultDiscriminator: true,
	}
	client.banErr["flaky"] = errors.New("missing permissions")

	o, registry, activity, scheduler := testOrchestrator(client)
	defer scheduler.Stop()
	registry.Add("vip", protect.KindManual)

	for _, id := range []string{"fresh", "aged", "admin", "vip", "flaky", "fresh2", "ghost"} {
		activity.RecordJoin("g1", models.JoinEvent{UserID: id, JoinedAt: now})
	}

	banned, kicked := o.AutoBan("g1", "bot raid detected")
	if banned != 2 {
		t.Fatalf("banned = %d, want 2", banned)
	}
	got := map[string]bool{}
	for _, id := range client.banned {
		got[id] = true
	}
	if !got["fresh"] || !got["fresh2"] {
		t.Errorf("expected fresh accounts banned, got %v", client.banned)
	}
	if got["aged"] || got["admin"] || got["vip"] || got["flaky"] || got["ghost"] {
		t.Errorf("banned a spared user: %v", client.banned)
	}

	// The aged avatarless account with a default discriminator gets the
	// kick tier, not a ban.
	if kicked != 1 || len(client.kicked) != 1 || client.kicked[0] != "ghost" {
		t.Errorf("kicked = %d %v, want only ghost", kicked, client.kicked)
	}
}

func TestAllowEventGatesOnlyWithLimiter(t *testing.T) {
	client := newFakeClient()
	o, _, _, scheduler := testOrchestrator(client)
	defer scheduler.Stop()

	if !o.AllowEvent("g1") {
		t.Fatal("no limiter installed, event must pass")
	}

	sess := models.NewCombatSession("g1", time.Now())
	sig := models.NewThreatSignal(models.SignalMessageSpam, "spam", 6)
	o.ActivateCountermeasures(sess, sig)

	allowed := 0
	for i := 0; i < 50; i++ {
		if o.AllowEvent("g1") {
			allowed++
		}
	}
	if allowed >= 50 {
		t.Error("limiter should reject part of a burst")
	}
}

func TestDeactivateRestoresLockdownOnly(t *testing.T) {
	client := newFakeClient()
	client.channels = []platform.Channel{
		{ID: "c1", Name: "general", Type: platform.ChannelText},
		{ID: "c2", Name: "secrets", Type: platform.ChannelText},
	}
	client.messages["c2"] = []platform.Message{{AuthorID: "u1", Content: "hello"}}

	o, _, _, scheduler := testOrchestrator(client)
	defer scheduler.Stop()
	o.SetBlobStore(&memBlobStore{})

	o.Lockdown("g1")
	// Flip c2 into the encrypted state on top of lockdown.
	o.setChannelState("c2", visibilityEncrypted)

	restored := o.Deactivate("g1")
	if restored != 1 {
		t.Fatalf("restored = %d, want 1", restored)
	}
	if _, ok := client.hidden["c1"]; ok {
		t.Error("lockdown channel should be visible again")
	}
	if _, ok := client.hidden["c2"]; !ok {
		t.Error("encrypted channel must stay hidden until decryption")
	}
	if !o.AllowEvent("g1") {
		t.Error("limiter should be dropped on deactivation")
	}
}
