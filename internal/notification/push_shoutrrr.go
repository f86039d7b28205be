package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

// ShoutrrrProvider sends via nicholas-fedor/shoutrrr service URLs
// (telegram://, discord://, smtp:// and the rest of its catalogue).
type ShoutrrrProvider struct {
	name    string
	enabled bool
	url     string
	sender  *router.ServiceRouter
	timeout time.Duration
}

// NewShoutrrrProvider creates a provider for a single shoutrrr URL.
func NewShoutrrrProvider(name string, enabled bool, url string, timeout time.Duration) *ShoutrrrProvider {
	if name == "" {
		name = "shoutrrr"
	}
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}
	return &ShoutrrrProvider{
		name:    name,
		enabled: enabled,
		url:     url,
		timeout: timeout,
	}
}

func (s *ShoutrrrProvider) GetName() string          { return s.name }
func (s *ShoutrrrProvider) IsEnabled() bool          { return s.enabled }
func (s *ShoutrrrProvider) SupportsType(t Type) bool { return true }

// ValidateConfig builds the sender, which validates the URL.
func (s *ShoutrrrProvider) ValidateConfig() error {
	if !s.enabled {
		return nil
	}
	if s.url == "" {
		return fmt.Errorf("shoutrrr provider %q: url is required", s.name)
	}
	sender, err := shoutrrr.CreateSender(s.url)
	if err != nil {
		return fmt.Errorf("shoutrrr provider %q: %w", s.name, err)
	}
	s.sender = sender
	s.sender.Timeout = s.timeout
	s.sender.SetLogger(log.New(io.Discard, "", 0))
	return nil
}

func (s *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if s.sender == nil {
		return fmt.Errorf("shoutrrr sender not initialized")
	}
	_ = ctx // the router enforces its own timeout

	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	for _, err := range s.sender.Send(n.Message, &params) {
		if err != nil {
			return err
		}
	}
	return nil
}
