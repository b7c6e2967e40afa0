package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	wstypes "greenhouse-assistant/backend/pkg/ws"

	"github.com/gorilla/websocket"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8081", "API base URL")
	username := flag.String("user", "", "username to log in with")
	password := flag.String("password", os.Getenv("FEED_PASSWORD"), "password (or FEED_PASSWORD)")
	token := flag.String("token", os.Getenv("FEED_TOKEN"), "bearer token; skips login when set")
	greenhouseID := flag.Uint("greenhouse", 0, "greenhouse to follow")
	flag.Parse()

	if *greenhouseID == 0 || (*token == "" && *username == "") {
		fmt.Println("Live readings listener")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if *token == "" {
		t, err := login(*baseURL, *username, *password)
		if err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		*token = t
	}

	if err := listen(*baseURL, *token, *greenhouseID); err != nil {
		log.Fatal(err)
	}
}

func login(baseURL, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(baseURL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func wsEndpoint(baseURL, token string, greenhouseID uint) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = fmt.Sprintf("/api/v1/ws/greenhouses/%d/readings", greenhouseID)
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

func listen(baseURL, token string, greenhouseID uint) error {
	endpoint, err := wsEndpoint(baseURL, token, greenhouseID)
	if err != nil {
		return err
	}

	log.Println("Connecting to WebSocket...")
	conn, _, err := websocket.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return fmt.Errorf("error connecting to WebSocket: %w", err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg struct {
				Type    string          `json:"type"`
				Content json.RawMessage `json:"content"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				log.Printf("WebSocket read error: %v", err)
				return
			}
			switch msg.Type {
			case wstypes.TypeReading:
				var r wstypes.Reading
				if err := json.Unmarshal(msg.Content, &r); err != nil {
					log.Printf("Bad reading: %v", err)
					continue
				}
				fmt.Printf("%s  %-20s %-14s %8.2f\n", r.RecordedAt.Format(time.RFC3339), r.SensorName, r.SensorType, r.Value)
			case wstypes.TypeHello:
				log.Printf("Subscribed to greenhouse %d", greenhouseID)
			case wstypes.TypeError:
				log.Printf("Server error: %s", msg.Content)
			}
		}
	}()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case <-ticker.C:
			if err := conn.WriteJSON(wstypes.Envelope{Type: wstypes.TypePing}); err != nil {
				return fmt.Errorf("error writing ping: %w", err)
			}
		case <-interrupt:
			log.Println("Interrupt received, shutting down...")
			err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("Error during closing websocket: %v", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return nil
		}
	}
}
