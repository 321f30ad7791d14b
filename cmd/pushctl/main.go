package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	jwtinfra "github.com/go-push-relay/internal/infrastructure/jwt"
	"github.com/go-push-relay/internal/infrastructure/webpush"
	"github.com/go-push-relay/internal/pkg/logging"
	"github.com/urfave/cli/v2"
)

var (
	logJSONFlag = &cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	}
	logDebugFlag = &cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	}
	logUIDFlag = &cli.BoolFlag{
		Name:  "log-uid",
		Value: false,
		Usage: "generate a uuid and add to all log messages",
	}
	apiURLFlag = &cli.StringFlag{
		Name:    "api-url",
		Value:   "http://127.0.0.1:3000",
		Usage:   "base URL of the push API",
		EnvVars: []string{"PUSH_API_URL"},
	}
	tokenFlag = &cli.StringFlag{
		Name:    "token",
		Usage:   "operator bearer token (see 'pushctl token')",
		EnvVars: []string{"PUSH_OPERATOR_TOKEN"},
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Value: 5 * time.Minute,
		Usage: "overall request timeout",
	}
)

var notificationFlags = []cli.Flag{
	&cli.StringFlag{Name: "title", Usage: "notification title"},
	&cli.StringFlag{Name: "body", Usage: "notification body"},
	&cli.StringFlag{Name: "icon", Usage: "icon URL"},
	&cli.StringFlag{Name: "badge", Usage: "badge URL"},
	&cli.StringFlag{Name: "tag", Usage: "notification tag"},
	&cli.StringFlag{Name: "url", Usage: "URL opened on click"},
	&cli.IntFlag{Name: "badge-count", Value: -1, Usage: "app badge count, negative to omit"},
}

func setupLogger(cCtx *cli.Context) *slog.Logger {
	return logging.New(logging.Options{
		JSON:    cCtx.Bool(logJSONFlag.Name),
		Debug:   cCtx.Bool(logDebugFlag.Name),
		UID:     cCtx.Bool(logUIDFlag.Name),
		Service: "pushctl",
	})
}

func main() {
	app := &cli.App{
		Name:  "pushctl",
		Usage: "Operate the push API: key generation, operator tokens, sends and broadcasts",
		Flags: []cli.Flag{logJSONFlag, logDebugFlag, logUIDFlag},
		Commands: []*cli.Command{
			{
				Name:   "keygen",
				Usage:  "generate a sender key pair as env lines",
				Action: keygen,
			},
			{
				Name:  "token",
				Usage: "mint an operator token, or a recipient token for one recipient id",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "private-key",
						Usage:    "RSA private key (PEM) matching the API's operator public key",
						EnvVars:  []string{"OPERATOR_JWT_PRIVATE_KEY_PATH"},
						Required: true,
					},
					&cli.StringFlag{Name: "subject", Value: "pushctl", Usage: "operator name, or the recipient id for recipient tokens"},
					&cli.StringFlag{Name: "scope", Value: jwtinfra.ScopeOperator, Usage: "operator or recipient"},
					&cli.DurationFlag{Name: "expiry", Value: time.Hour, Usage: "token lifetime"},
				},
				Action: token,
			},
			{
				Name:      "send",
				Usage:     "send one notification to a recipient",
				ArgsUsage: "<recipient-id>",
				Flags:     append([]cli.Flag{apiURLFlag, tokenFlag, timeoutFlag}, notificationFlags...),
				Action:    send,
			},
			{
				Name:   "broadcast",
				Usage:  "send one notification to every recipient and print the report",
				Flags:  append([]cli.Flag{apiURLFlag, tokenFlag, timeoutFlag}, notificationFlags...),
				Action: broadcast,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func keygen(cCtx *cli.Context) error {
	pub, priv, err := webpush.GenerateKeys()
	if err != nil {
		return err
	}
	fmt.Fprintf(cCtx.App.Writer, "VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", pub, priv)
	return nil
}

func token(cCtx *cli.Context) error {
	p, err := jwtinfra.NewProvider(cCtx.String("private-key"), "", cCtx.Duration("expiry"))
	if err != nil {
		return err
	}
	scope := cCtx.String("scope")
	if scope != jwtinfra.ScopeOperator && scope != jwtinfra.ScopeRecipient {
		return cli.Exit(fmt.Sprintf("unknown scope %q", scope), 2)
	}
	tok, err := p.Sign(cCtx.String("subject"), scope)
	if err != nil {
		return err
	}
	fmt.Fprintln(cCtx.App.Writer, tok)
	return nil
}

func send(cCtx *cli.Context) error {
	log := setupLogger(cCtx)
	recipient := cCtx.Args().First()
	if recipient == "" {
		return cli.Exit("recipient id is required", 2)
	}
	ctx, cancel := contextWithTimeout(cCtx)
	defer cancel()

	c := newClient(cCtx.String(apiURLFlag.Name), cCtx.String(tokenFlag.Name))
	if err := c.Send(ctx, recipient, fieldsFromFlags(cCtx)); err != nil {
		log.Error("send failed", "recipient", recipient, "err", err)
		return err
	}
	log.Info("notification sent", "recipient", recipient)
	return nil
}

func broadcast(cCtx *cli.Context) error {
	log := setupLogger(cCtx)
	ctx, cancel := contextWithTimeout(cCtx)
	defer cancel()

	c := newClient(cCtx.String(apiURLFlag.Name), cCtx.String(tokenFlag.Name))
	report, err := c.Broadcast(ctx, fieldsFromFlags(cCtx))
	if err != nil {
		log.Error("broadcast failed", "err", err)
		return err
	}
	log.Info("broadcast finished", "id", report.ID, "sent", report.Sent, "failed", report.Failed, "total", report.Total)
	enc := json.NewEncoder(cCtx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
