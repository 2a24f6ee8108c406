package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iudanet/cvewatch/pkg/api"
)

func (a *App) newNotificationsCmd() *cobra.Command {
	var (
		unread   bool
		markRead string
		markAll  bool
	)

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List or acknowledge notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), func(ctx context.Context) error {
				switch {
				case markAll:
					if err := a.exec.MarkAllNotificationsRead(ctx); err != nil {
						return err
					}
					a.io.Println("✓ All notifications marked as read")
					return nil
				case markRead != "":
					if err := a.exec.MarkNotificationRead(ctx, markRead); err != nil {
						return err
					}
					a.io.Printf("✓ Notification %s marked as read\n", markRead)
					return nil
				}

				resp, err := a.exec.Notifications(ctx, unread)
				if err != nil {
					return err
				}
				return a.printJSON(resp)
			})
		},
	}

	cmd.Flags().BoolVar(&unread, "unread", false, "Only unread notifications")
	cmd.Flags().StringVar(&markRead, "mark-read", "", "Mark the notification with this id as read")
	cmd.Flags().BoolVar(&markAll, "mark-all", false, "Mark all notifications as read")
	return cmd
}

func (a *App) newChatCmd() *cobra.Command {
	var sessions bool

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Ask the AI assistant",
		Long:  "Send a message to the AI assistant. The conversation id is kept in local preferences.",
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.TrimSpace(strings.Join(args, " "))
			if !sessions && message == "" {
				return errors.New("message is required")
			}

			return a.run(cmd.Context(), func(ctx context.Context) error {
				if sessions {
					resp, err := a.exec.ChatSessions(ctx)
					if err != nil {
						return err
					}
					return a.printJSON(resp)
				}

				sessionID, err := a.chatSessionID(ctx)
				if err != nil {
					return err
				}
				resp, err := a.exec.Chat(ctx, api.ChatRequest{Message: message, SessionID: sessionID})
				if err != nil {
					return err
				}
				return a.printJSON(resp)
			})
		},
	}

	cmd.Flags().BoolVar(&sessions, "sessions", false, "List chat sessions")
	return cmd
}

// chatSessionID возвращает id текущего разговора, создавая его при первом обращении
func (a *App) chatSessionID(ctx context.Context) (string, error) {
	prefs, err := a.prefs.GetPreferences(ctx)
	if err != nil {
		return "", err
	}
	if prefs.ChatSessionID != "" {
		return prefs.ChatSessionID, nil
	}
	prefs.ChatSessionID = uuid.NewString()
	if err := a.prefs.SavePreferences(ctx, prefs); err != nil {
		return "", err
	}
	return prefs.ChatSessionID, nil
}

func (a *App) newPrefsCmd() *cobra.Command {
	var (
		darkMode     bool
		defaultLimit int
		resetChat    bool
	)

	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change local preferences",
		Long:  "Preferences are stored next to the session and survive logout.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			prefs, err := a.prefs.GetPreferences(ctx)
			if err != nil {
				return err
			}

			changed := false
			if cmd.Flags().Changed("dark-mode") {
				prefs.DarkMode = darkMode
				changed = true
			}
			if cmd.Flags().Changed("default-limit") {
				if defaultLimit < 1 || defaultLimit > 100 {
					return fmt.Errorf("default limit must be between 1 and 100, got %d", defaultLimit)
				}
				prefs.DefaultLimit = defaultLimit
				changed = true
			}
			if resetChat {
				prefs.ChatSessionID = ""
				changed = true
			}
			if changed {
				if err := a.prefs.SavePreferences(ctx, prefs); err != nil {
					return err
				}
			}
			return a.printJSON(prefs)
		},
	}

	cmd.Flags().BoolVar(&darkMode, "dark-mode", false, "Dark theme")
	cmd.Flags().IntVar(&defaultLimit, "default-limit", 0, "Default search limit")
	cmd.Flags().BoolVar(&resetChat, "reset-chat", false, "Start a new chat conversation")
	return cmd
}

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoSession: ""},
		Run: func(cmd *cobra.Command, args []string) {
			version := a.version
			if version == "" {
				version = "dev"
			}
			a.io.Printf("cvewatch %s\n", version)
		},
	}
}
