package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/timberline-data/enrich-cli/internal/email"
)

var (
	sendTemplate string
	sendVars     []string
	sendLogPath  string
)

var sendCmd = &cobra.Command{
	Use:   "send <run-id>",
	Short: "Send outreach emails to a run's eligible businesses",
	Long:  "Selects results with a usable email address, renders the template per business, and sends via the configured SMTP transport with a delay between sends.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.ValidateEmail(); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		results, err := loadRunResults(ctx, st, args[0])
		if err != nil {
			return err
		}

		templates := email.DefaultTemplates()
		if cfg.Email.TemplateDir != "" {
			loaded, err := email.LoadTemplates(cfg.Email.TemplateDir)
			if err != nil {
				return err
			}
			for name, tpl := range loaded {
				templates[name] = tpl
			}
		}

		vars, err := parseVars(sendVars)
		if err != nil {
			return err
		}
		if cfg.Email.SenderName != "" {
			if _, ok := vars["sender_name"]; !ok {
				vars["sender_name"] = cfg.Email.SenderName
			}
		}

		transport, err := email.NewSMTPTransport(email.SMTPConfig{
			Host:       cfg.Email.SMTPHost,
			Port:       cfg.Email.SMTPPort,
			Address:    cfg.Email.Address,
			Password:   cfg.Email.Password,
			SenderName: cfg.Email.SenderName,
		})
		if err != nil {
			return err
		}

		delay := time.Duration(cfg.Email.SendDelaySecs) * time.Second
		dispatcher := email.NewDispatcher(templates, delay)
		if err := dispatcher.Configure(ctx, transport); err != nil {
			return eris.Wrap(err, "email transport test failed")
		}

		summary, err := dispatcher.SendBulk(ctx, results, email.SendOptions{
			TemplateName: sendTemplate,
			Variables:    vars,
		})
		if err != nil {
			return err
		}

		if sendLogPath != "" {
			if err := dispatcher.SaveLog(sendLogPath); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, eris.Errorf("invalid --var %q (expected key=value)", pair)
		}
		vars[k] = v
	}
	return vars, nil
}

func init() {
	sendCmd.Flags().StringVar(&sendTemplate, "template", "business_intro", "template name")
	sendCmd.Flags().StringArrayVar(&sendVars, "var", nil, "template variable as key=value (repeatable)")
	sendCmd.Flags().StringVar(&sendLogPath, "log", "", "write the JSON send log to this file")
	rootCmd.AddCommand(sendCmd)
}
