// grbwatch/notifier/notifier.go
package notifier

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gewnthar/grbwatch/models"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "notifier")

// Notifier posts one alert summary to a chat destination.
type Notifier interface {
	Post(ctx context.Context, payload models.NotificationPayload) error
}

// Multi posts to each notifier in order and stops at the first failure.
type Multi []Notifier

func (m Multi) Post(ctx context.Context, payload models.NotificationPayload) error {
	for _, n := range m {
		if err := n.Post(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

// FormatMessage renders the alert summary posted for every new trigger.
func FormatMessage(p models.NotificationPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* (%s)\n", p.Trig, p.SourceURL)
	fmt.Fprintf(&b, "*Trigger Time*: %s %s\n", p.Date, p.Time)
	fmt.Fprintf(&b, "*BAT Coord*: %s %s\n", p.BATRA, p.BATDec)
	fmt.Fprintf(&b, "*BAT Coord (Galactic l, b)*: %s %s\n", p.GalacticL, p.GalacticB)
	fmt.Fprintf(&b, "*XRT Coord*: %s %s\n", p.XRTRA, p.XRTDec)
	fmt.Fprintf(&b, "*MW Extinction (Av)*: %s mag\n", p.Extinction)
	fmt.Fprintf(&b, "*BAT Light Curve*: %s\n", p.LightCurveURL)
	return b.String()
}

// LoadToken returns the first line of the token file. When the file does not
// exist it warns and falls back to the SLACK_TOKEN environment variable,
// which may be empty; the Slack API then rejects the calls.
func LoadToken(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warnf("Token file %s does not exist. Create token file or set SLACK_TOKEN.", path)
			return os.Getenv("SLACK_TOKEN"), nil
		}
		return "", fmt.Errorf("failed to open token file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r\n"), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read token file %s: %w", path, err)
	}
	return "", nil
}
