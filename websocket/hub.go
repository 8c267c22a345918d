package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Wire protocol message types. Client to server: join is implicit in the
// connection, then audio_chunk, done_speaking and end_interview. Server to
// client: joined, question, transcript, complete and error.
const (
	TypeAudioChunk   = "audio_chunk"
	TypeDoneSpeaking = "done_speaking"
	TypeEndInterview = "end_interview"

	TypeJoined     = "joined"
	TypeQuestion   = "question"
	TypeTranscript = "transcript"
	TypeComplete   = "complete"
	TypeError      = "error"
)

// Message is the envelope for every frame on an interview connection.
type Message struct {
	Type            string `json:"type"`
	Content         string `json:"content,omitempty"`
	AudioDataBase64 string `json:"audio_data_base64,omitempty"`
	MimeType        string `json:"mime_type,omitempty"`
	QuestionNumber  int    `json:"question_number,omitempty"`
	TotalQuestions  int    `json:"total_questions,omitempty"`
	Unanalyzed      bool   `json:"unanalyzed,omitempty"`
}

// Hub tracks interview rooms, one room per application with a single candidate
// connection. A reconnect replaces the previous connection for the room.
type Hub struct {
	rooms      map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

type Client struct {
	Hub           *Hub
	Conn          *websocket.Conn
	Send          chan []byte
	UserID        string
	ApplicationID string

	MessageHandler func(*Client, []byte)
	CloseHandler   func(*Client)
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if prev, ok := h.rooms[client.ApplicationID]; ok {
				close(prev.Send)
				prev.Conn.Close()
			}
			h.rooms[client.ApplicationID] = client
			h.mu.Unlock()
			slog.Info("Client joined room", "user_id", client.UserID, "application_id", client.ApplicationID)

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.rooms[client.ApplicationID]; ok && current == client {
				delete(h.rooms, client.ApplicationID)
				close(client.Send)
			}
			h.mu.Unlock()
			slog.Info("Client left room", "user_id", client.UserID, "application_id", client.ApplicationID)
			// Close handlers may block on a session lock; keep them off the
			// hub loop so other rooms can still register and unregister.
			if client.CloseHandler != nil {
				go client.CloseHandler(client)
			}
		}
	}
}

// RegisterClient attaches a connection to an application's room.
func (h *Hub) RegisterClient(conn *websocket.Conn, userID, applicationID string) *Client {
	client := &Client{
		Hub:           h,
		Conn:          conn,
		Send:          make(chan []byte, 256),
		UserID:        userID,
		ApplicationID: applicationID,
	}

	h.register <- client
	return client
}

// SendMessage marshals and queues a message on the client's single ordered
// send channel.
func (c *Client) SendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("Failed to marshal message", "error", err, "type", msg.Type)
		return
	}
	select {
	case c.Send <- data:
	default:
		slog.Warn("Send channel full, dropping message", "application_id", c.ApplicationID, "type", msg.Type)
	}
}

// ReadPump delivers incoming frames to the message handler in arrival order.
// Handlers run synchronously so audio chunks and control frames cannot
// reorder.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(10 * 1024 * 1024) // 10MB limit for large audio recordings
	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "error", err, "application_id", c.ApplicationID)
			}
			break
		}

		if c.MessageHandler != nil {
			c.MessageHandler(c, messageBytes)
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
