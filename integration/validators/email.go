package validators

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/AzielCF/az-connect/integration/domain/channel"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type smtpSettings struct {
	Host string `json:"smtp_host"`
	Port string `json:"smtp_port"`
	From string `json:"from_address"`
}

// Email dials the SMTP server and waits for its 220 greeting. Nothing is
// sent.
type Email struct {
	dialer net.Dialer
}

func (v *Email) Validate(ctx context.Context, cfg channel.ChannelConfig) error {
	s := smtpSettings{
		Host: cfg.Setting("smtp_host"),
		Port: cfg.Setting("smtp_port"),
		From: cfg.Setting("from_address"),
	}
	if err := shapeError(validation.ValidateStruct(&s,
		validation.Field(&s.Host, validation.Required, is.Host),
		validation.Field(&s.Port, validation.Required, is.Port),
		validation.Field(&s.From, validation.Required, is.EmailFormat),
	)); err != nil {
		return err
	}

	conn, err := v.dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.Host, s.Port))
	if err != nil {
		return fmt.Errorf("smtp server unreachable: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(deadline(ctx))

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("smtp greeting not received: %w", err)
	}
	if !strings.HasPrefix(line, "220") {
		return fmt.Errorf("unexpected smtp greeting: %s", strings.TrimSpace(line))
	}
	_, _ = conn.Write([]byte("QUIT\r\n"))
	return nil
}
