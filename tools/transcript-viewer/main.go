// Transcript Viewer - Real-time transcript display
// Consumes completed transcripts and post-processing jobs from Kafka
// and displays them via WebSocket in the browser
package main

import (
	"context"
	"embed"
	"encoding/json"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
)

//go:embed static/*
var staticFiles embed.FS

// completedEvent mirrors the transcript.completed payload published by the engine.
type completedEvent struct {
	EventType  string     `json:"eventType"`
	SessionID  string     `json:"sessionId"`
	Transcript transcript `json:"transcript"`
	Timestamp  int64      `json:"timestamp"`
}

type transcript struct {
	DurationMs        int64     `json:"durationMs"`
	Segments          []segment `json:"segments"`
	WordCount         int       `json:"wordCount"`
	AverageConfidence float64   `json:"averageConfidence"`
	ModelsUsed        []string  `json:"modelsUsed"`
	EstimatedCostUSD  float64   `json:"estimatedCostUsd"`
}

type segment struct {
	SpeakerID  string  `json:"speakerId"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
	StartMs    int64   `json:"startMs"`
}

// postProcessingJob mirrors the postprocess.job payload.
type postProcessingJob struct {
	SessionID    string `json:"sessionId"`
	TranscriptID string `json:"transcriptId"`
	SegmentCount int    `json:"segmentCount"`
	DurationMs   int64  `json:"durationMs"`
	ScheduledAt  int64  `json:"scheduledAt"`
}

// viewerEvent is the normalized shape pushed to browser clients.
type viewerEvent struct {
	EventType  string  `json:"eventType"`
	SessionID  string  `json:"sessionId"`
	SpeakerID  string  `json:"speakerId,omitempty"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Model      string  `json:"model,omitempty"`
	StartMs    int64   `json:"startMs,omitempty"`
	WordCount  int     `json:"wordCount,omitempty"`
	DurationMs int64   `json:"durationMs,omitempty"`
	CostUSD    float64 `json:"estimatedCostUsd,omitempty"`
	Timestamp  int64   `json:"timestamp"`
}

// Hub manages WebSocket connections
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan viewerEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan viewerEvent, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			log.Printf("Client connected. Total: %d", len(h.clients))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()
			log.Printf("Client disconnected. Total: %d", len(h.clients))

		case event := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				err := conn.WriteJSON(event)
				if err != nil {
					log.Printf("Write error: %v", err)
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev
	},
}

func wsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade error: %v", err)
			return
		}
		hub.register <- conn

		// Keep connection alive, handle disconnects
		go func() {
			defer func() {
				hub.unregister <- conn
			}()
			for {
				_, _, err := conn.ReadMessage()
				if err != nil {
					break
				}
			}
		}()
	}
}

// eventTypeOf reads the eventType header the engine stamps on every message.
func eventTypeOf(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "eventType" {
			return string(h.Value)
		}
	}
	return ""
}

func handleMessage(hub *Hub, msg kafka.Message) {
	switch eventTypeOf(msg) {
	case "transcript.completed":
		var event completedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("JSON unmarshal error: %v", err)
			return
		}
		log.Printf("Received transcript: session=%s words=%d duration=%dms",
			event.SessionID, event.Transcript.WordCount, event.Transcript.DurationMs)

		// One row per segment, then the summary row
		for _, seg := range event.Transcript.Segments {
			hub.broadcast <- viewerEvent{
				EventType:  "segment",
				SessionID:  event.SessionID,
				SpeakerID:  seg.SpeakerID,
				Text:       seg.Text,
				Confidence: seg.Confidence,
				Model:      seg.Model,
				StartMs:    seg.StartMs,
				Timestamp:  event.Timestamp,
			}
		}
		hub.broadcast <- viewerEvent{
			EventType:  "transcript.completed",
			SessionID:  event.SessionID,
			Text:       truncate(strings.Join(event.Transcript.ModelsUsed, ", "), 80),
			Confidence: event.Transcript.AverageConfidence,
			WordCount:  event.Transcript.WordCount,
			DurationMs: event.Transcript.DurationMs,
			CostUSD:    event.Transcript.EstimatedCostUSD,
			Timestamp:  event.Timestamp,
		}

	case "postprocess.job":
		var job postProcessingJob
		if err := json.Unmarshal(msg.Value, &job); err != nil {
			log.Printf("JSON unmarshal error: %v", err)
			return
		}
		log.Printf("Received job: session=%s segments=%d", job.SessionID, job.SegmentCount)
		hub.broadcast <- viewerEvent{
			EventType:  "postprocess.job",
			SessionID:  job.SessionID,
			Text:       job.TranscriptID,
			WordCount:  job.SegmentCount,
			DurationMs: job.DurationMs,
			Timestamp:  job.ScheduledAt,
		}

	default:
		log.Printf("Skipping message with unknown eventType on %s", msg.Topic)
	}
}

func consumeKafka(ctx context.Context, hub *Hub, brokers, topic string) {
	// Use partition reader without consumer group (works better through port-forward)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   strings.Split(brokers, ","),
		Topic:     topic,
		Partition: 0, // Read from partition 0 only (simplest for demo)
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	// Start from the latest offset (only show new messages)
	reader.SetOffsetAt(ctx, time.Now().Add(-1*time.Hour)) // Last hour of messages

	log.Printf("Consuming from Kafka topic: %s partition 0 (last hour)", topic)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Kafka read error on %s: %v", topic, err)
				time.Sleep(time.Second)
				continue
			}

			handleMessage(hub, msg)
		}
	}
}

func main() {
	port := flag.String("port", "8081", "HTTP server port")
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicCompleted := flag.String("topic-completed", "transcripts.completed", "Completed transcript topic")
	topicJobs := flag.String("topic-jobs", "postprocess.jobs", "Post-processing job topic")
	flag.Parse()

	hub := newHub()
	go hub.run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start Kafka consumers
	go consumeKafka(ctx, hub, *brokers, *topicCompleted)
	go consumeKafka(ctx, hub, *brokers, *topicJobs)

	// Serve static files
	staticFS, _ := fs.Sub(staticFiles, "static")
	http.Handle("/", http.FileServer(http.FS(staticFS)))

	// WebSocket endpoint
	http.HandleFunc("/ws", wsHandler(hub))

	log.Printf("Transcript Viewer starting on http://localhost:%s", *port)
	log.Printf("   Kafka brokers: %s", *brokers)
	log.Printf("   Topics: %s, %s", *topicCompleted, *topicJobs)

	if err := http.ListenAndServe(":"+*port, nil); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
