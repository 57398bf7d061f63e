package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/drawparty/models"
	"github.com/wfunc/drawparty/network"
)

// send marshals and sends one JSON frame.
func send(c *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func main() {
	addr := flag.String("addr", "localhost:8001", "server address")
	roomName := flag.String("room", "lobby", "room to join")
	username := flag.String("username", "", "username (random if empty)")
	flag.Parse()

	clientID := uuid.New().String()
	name := *username
	if name == "" {
		name = "guest-" + clientID[:8]
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws", RawQuery: "client_id=" + clientID}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			msgType, err := network.ParseEnvelope(message)
			if err != nil {
				log.Printf("Received invalid frame: %s", string(message))
				continue
			}
			log.Printf("<- RECV (%s): %s", msgType, string(message))
		}
	}()

	// Join the room right after connecting
	log.Printf("Joining room %q as %q...", *roomName, name)
	handshake := &models.JoinRoomHandshake{
		Type:     network.TypeJoinRoomHandshake,
		Username: name,
		RoomName: *roomName,
		ClientID: clientID,
	}
	if err := send(c, handshake); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Client started. Type a guess and press Enter; type /word <w> to pick a word.")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}

			if word, ok := strings.CutPrefix(text, "/word "); ok {
				if err := send(c, models.NewChosenWord(word, *roomName)); err != nil {
					log.Println("Write error:", err)
					return
				}
				log.Printf("-> SENT: chose word %q", word)
				continue
			}

			chat := &models.ChatMessage{
				Type:      network.TypeChatMessage,
				From:      name,
				RoomName:  *roomName,
				Message:   text,
				Timestamp: time.Now().UnixMilli(),
			}
			if err := send(c, chat); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}
