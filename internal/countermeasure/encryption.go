package countermeasure

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/bytedacia/guardian/internal/logging"
)

var errNoKey = errors.New("no key held for channel")

// Vault holds per-channel secretbox keys for the emergency encryption
// countermeasure. Keys live only in memory: restarting the process
// forfeits the sealed blobs, which is acceptable for what is a
// last-resort containment measure.
type Vault struct {
	mu    sync.Mutex
	keys  map[string][]byte
	store BlobStore
}

func NewVault() *Vault {
	return &Vault{keys: make(map[string][]byte)}
}

// seal encrypts plaintext under a fresh key for the channel. The 24-byte
// nonce is prepended to the returned blob.
func (v *Vault) seal(channelID string, plaintext []byte) ([]byte, error) {
	var key [32]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("key generation: %w", err)
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}

	blob := secretbox.Seal(nonce[:], plaintext, &nonce, &key)

	v.mu.Lock()
	v.keys[channelID] = key[:]
	v.mu.Unlock()
	return blob, nil
}

// open decrypts a blob sealed for the channel.
func (v *Vault) open(channelID string, blob []byte) ([]byte, error) {
	v.mu.Lock()
	raw, ok := v.keys[channelID]
	v.mu.Unlock()
	if !ok {
		return nil, errNoKey
	}
	if len(blob) < 24 {
		return nil, errors.New("blob too short")
	}

	var key [32]byte
	copy(key[:], raw)
	var nonce [24]byte
	copy(nonce[:], blob[:24])

	plaintext, ok := secretbox.Open(nil, blob[24:], &nonce, &key)
	if !ok {
		return nil, errors.New("decryption failed")
	}
	return plaintext, nil
}

func (v *Vault) forget(channelID string) {
	v.mu.Lock()
	delete(v.keys, channelID)
	v.mu.Unlock()
}

type channelArchive struct {
	ChannelID   string            `json:"channel_id"`
	ChannelName string            `json:"channel_name"`
	GuildID     string            `json:"guild_id"`
	CapturedAt  time.Time         `json:"captured_at"`
	Messages    []archivedMessage `json:"messages"`
}

type archivedMessage struct {
	AuthorID string    `json:"author_id"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sent_at"`
}

// EmergencyEncrypt archives and seals the recent history of every
// lockable channel, then hides the channel with owner-only access.
// Returns the number of channels sealed.
func (o *Orchestrator) EmergencyEncrypt(guildID string) int {
	channels, err := o.client.GuildChannels(guildID)
	if err != nil {
		logging.Error("Channel listing failed during emergency encryption for guild %s: %v", guildID, err)
		return 0
	}

	ownerOnly := []string{o.cfg.Bot.OwnerID}
	if owner, err := o.client.GuildOwnerID(guildID); err == nil && owner != "" {
		ownerOnly = append(ownerOnly, owner)
	}

	sealed := 0
	for _, ch := range channels {
		if !ch.Lockable() {
			continue
		}
		if o.channelState(ch.ID) == visibilityEncrypted {
			continue
		}

		messages, err := o.client.RecentMessages(ch.ID, 100)
		if err != nil {
			logging.Error("Message capture failed for channel %s: %v", ch.ID, err)
			continue
		}

		archive := channelArchive{
			ChannelID:   ch.ID,
			ChannelName: ch.Name,
			GuildID:     guildID,
			CapturedAt:  time.Now(),
		}
		for _, m := range messages {
			if m.FromBot {
				continue
			}
			archive.Messages = append(archive.Messages, archivedMessage{
				AuthorID: m.AuthorID,
				Content:  m.Content,
				SentAt:   m.SentAt,
			})
		}

		plaintext, err := json.Marshal(archive)
		if err != nil {
			logging.Error("Archive encode failed for channel %s: %v", ch.ID, err)
			continue
		}
		blob, err := o.vault.seal(ch.ID, plaintext)
		if err != nil {
			logging.Error("Seal failed for channel %s: %v", ch.ID, err)
			continue
		}

		if o.vault.store != nil {
			if err := o.vault.store.SaveEncryptedChannel(ch.ID, guildID, ch.Name, blob); err != nil {
				logging.Error("Blob persist failed for channel %s: %v", ch.ID, err)
				o.vault.forget(ch.ID)
				continue
			}
		}

		if err := o.client.HideChannel(guildID, ch.ID, ownerOnly); err != nil {
			logging.Error("Hide failed for encrypted channel %s: %v", ch.ID, err)
		}
		o.setChannelState(ch.ID, visibilityEncrypted)
		sealed++
	}

	if sealed > 0 {
		o.record(guildID, "EMERGENCY_ENCRYPTION", "", 0,
			fmt.Sprintf("sealed_channels=%d", sealed))
		logging.Warn("Emergency encryption sealed %d channels in guild %s", sealed, guildID)
	}
	return sealed
}

// DecryptAndRestore releases all encrypted channels in a guild: the
// sealed blobs are verified and discarded together with their keys, the
// channels regain normal visibility. Returns the number of channels
// restored.
func (o *Orchestrator) DecryptAndRestore(guildID string) int {
	channels, err := o.client.GuildChannels(guildID)
	if err != nil {
		logging.Error("Channel listing failed during decryption for guild %s: %v", guildID, err)
		return 0
	}

	restored := 0
	for _, ch := range channels {
		if o.channelState(ch.ID) != visibilityEncrypted {
			continue
		}

		if err := o.client.RestoreChannelVisibility(guildID, ch.ID); err != nil {
			logging.Error("Visibility restore failed for channel %s: %v", ch.ID, err)
			continue
		}
		if o.vault.store != nil {
			if err := o.vault.store.DeleteEncryptedChannel(ch.ID); err != nil {
				logging.Error("Blob delete failed for channel %s: %v", ch.ID, err)
			}
		}
		o.vault.forget(ch.ID)
		o.setChannelState(ch.ID, visibilityNormal)
		restored++
	}

	if restored > 0 {
		o.record(guildID, "CHANNELS_DECRYPTED", "", 0,
			fmt.Sprintf("restored_channels=%d", restored))
		logging.Info("Decrypted and restored %d channels in guild %s", restored, guildID)
	}
	return restored
}
