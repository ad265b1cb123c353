package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/bytedacia/guardian/internal/logging"
)

// Session wraps the gateway connection. All defense-relevant events are
// registered through SetupEventHandlers before Connect.
type Session struct {
	discord   *discordgo.Session
	token     string
	heartbeat func(component string)
}

// SetHeartbeat installs the watchdog callback pinged on gateway traffic.
func (s *Session) SetHeartbeat(fn func(component string)) {
	s.heartbeat = fn
}

func (s *Session) beat() {
	if s.heartbeat != nil {
		s.heartbeat("gateway")
	}
}

func NewSession(token string) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	// Member joins, message content and moderation events all feed the
	// detectors, so the full intent set is required.
	dg.Identify.Intents = discordgo.IntentsAll
	dg.StateEnabled = true

	return &Session{discord: dg, token: token}, nil
}

// Discord exposes the underlying gateway session for the platform
// adapter and the notifier.
func (s *Session) Discord() *discordgo.Session {
	return s.discord
}

func (s *Session) Connect() error {
	if err := s.discord.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	if s.discord.State.User != nil {
		logging.Info("Connected as %s (%s)", s.discord.State.User.Username, s.discord.State.User.ID)
	}
	return nil
}

// AddHandler registers a gateway event handler.
func (s *Session) AddHandler(handler interface{}) {
	s.discord.AddHandler(handler)
}

// RegisterCommands publishes application commands globally.
func (s *Session) RegisterCommands(commands []*discordgo.ApplicationCommand) error {
	for _, cmd := range commands {
		if _, err := s.discord.ApplicationCommandCreate(s.discord.State.User.ID, "", cmd); err != nil {
			return fmt.Errorf("register command %s: %w", cmd.Name, err)
		}
		logging.Info("Registered command: /%s", cmd.Name)
	}
	return nil
}

func (s *Session) Close() error {
	if s.discord != nil {
		return s.discord.Close()
	}
	return nil
}
