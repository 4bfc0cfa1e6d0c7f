package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"bookcatalog/internal/toast"
)

func newToastsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toasts",
		Short: "Follow the web app's notifications",
	}

	var wsURL, session string
	watch := &cobra.Command{
		Use:   "watch",
		Short: "Print toast snapshots as the web app pushes them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint := wsURL
			if endpoint == "" {
				var err error
				endpoint, err = websocketURL(a.baseURL, "/ws/toasts")
				if err != nil {
					return fmt.Errorf("ws url: %w", err)
				}
			}
			return watchToasts(cmd.Context(), cmd.OutOrStdout(), endpoint, session)
		},
	}
	watch.Flags().StringVar(&wsURL, "ws", "", "WebSocket URL (defaults to /ws/toasts on the API host)")
	watch.Flags().StringVar(&session, "session", "", "attach to an existing browser session id")

	cmd.AddCommand(watch)
	return cmd
}

func watchToasts(ctx context.Context, w io.Writer, endpoint, session string) error {
	header := http.Header{}
	if session != "" {
		header.Set("Cookie", (&http.Cookie{Name: toast.SessionCookie, Value: session}).String())
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	for _, c := range resp.Cookies() {
		if c.Name == toast.SessionCookie {
			fmt.Fprintf(w, "session %s\n", c.Value)
		}
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		var snap toast.Snapshot
		if err := conn.ReadJSON(&snap); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		printSnapshot(w, snap)
	}
}

func printSnapshot(w io.Writer, snap toast.Snapshot) {
	if len(snap.Toasts) == 0 {
		fmt.Fprintln(w, "(no toasts)")
		return
	}
	for _, t := range snap.Toasts {
		b, _ := json.Marshal(t.Message)
		fmt.Fprintf(w, "[%s] %s %s\n", t.Variant, t.ID, b)
	}
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}
