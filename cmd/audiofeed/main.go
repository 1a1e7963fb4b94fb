package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// WAV header is 44 bytes for standard PCM files
const wavHeaderSize = 44

// Feed audio in 100ms chunks to simulate a live meeting feed.
const chunkIntervalMs = 100

type sessionInfo struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ActiveModel string `json:"activeModel"`
}

type segmentInfo struct {
	Seq        int64   `json:"seq"`
	SpeakerID  string  `json:"speakerId"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model"`
	StartMs    int64   `json:"startMs"`
	EndMs      int64   `json:"endMs"`
}

type transcriptInfo struct {
	SessionID         string        `json:"sessionId"`
	DurationMs        int64         `json:"durationMs"`
	Segments          []segmentInfo `json:"segments"`
	WordCount         int           `json:"wordCount"`
	AverageConfidence float64       `json:"averageConfidence"`
	ModelsUsed        []string      `json:"modelsUsed"`
	ModelSwitches     int           `json:"modelSwitches"`
	EstimatedTokens   int64         `json:"estimatedTokens"`
	EstimatedCostUSD  float64       `json:"estimatedCostUsd"`
}

func main() {
	audioFile := flag.String("audio", "../../testdata/sample-16khz.wav", "Path to WAV file (16kHz 16-bit mono)")
	serverAddr := flag.String("server", "http://localhost:8080", "Session API base URL")
	language := flag.String("language", "en-US", "Transcription language")
	diarize := flag.Bool("diarize", true, "Enable speaker diarization")
	flag.Parse()

	// Open audio file
	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	// Read and validate WAV header
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		log.Fatalf("Failed to read WAV header: %v", err)
	}

	// Validate it's a WAV file
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		log.Fatal("Not a valid WAV file")
	}

	// Extract audio format info
	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	numChannels := binary.LittleEndian.Uint16(header[22:24])
	sampleRate := binary.LittleEndian.Uint32(header[24:28])
	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])

	log.Printf("WAV file: format=%d channels=%d sampleRate=%d bitsPerSample=%d",
		audioFormat, numChannels, sampleRate, bitsPerSample)

	if audioFormat != 1 { // PCM
		log.Fatal("Only PCM format supported")
	}
	if sampleRate != 16000 {
		log.Printf("Warning: Sample rate is %d Hz, expected 16000 Hz", sampleRate)
	}

	// Bytes per chunk at the file's native format
	chunkSize := int(sampleRate) * int(numChannels) * int(bitsPerSample) / 8 * chunkIntervalMs / 1000

	client := &http.Client{Timeout: 30 * time.Second}

	// Start a session matching the file's format
	cfg := map[string]any{
		"language":      *language,
		"diarization":   *diarize,
		"sampleRate":    int(sampleRate),
		"channels":      int(numChannels),
		"bitsPerSample": int(bitsPerSample),
	}
	cfgBody, err := json.Marshal(cfg)
	if err != nil {
		log.Fatalf("Failed to encode session config: %v", err)
	}

	body, err := post(client, *serverAddr+"/v1/sessions", "application/json", cfgBody)
	if err != nil {
		log.Fatalf("Failed to start session: %v", err)
	}

	var sess sessionInfo
	if err := json.Unmarshal(body, &sess); err != nil {
		log.Fatalf("Failed to decode session: %v", err)
	}

	log.Printf("Session started: id=%s model=%s status=%s", sess.ID, sess.ActiveModel, sess.Status)

	audioURL := fmt.Sprintf("%s/v1/sessions/%s/audio", *serverAddr, sess.ID)

	// Feed audio in chunks
	audioChunk := make([]byte, chunkSize)
	var totalBytes int64
	var chunkNum int
	startTime := time.Now()

	for {
		n, err := f.Read(audioChunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("Failed to read audio: %v", err)
		}

		chunkNum++
		totalBytes += int64(n)

		body, err := post(client, audioURL, "application/octet-stream", audioChunk[:n])
		if err != nil {
			log.Fatalf("Failed to send chunk %d: %v", chunkNum, err)
		}

		var seg segmentInfo
		if err := json.Unmarshal(body, &seg); err != nil {
			log.Fatalf("Failed to decode segment: %v", err)
		}

		if seg.Text != "" {
			log.Printf("[%6dms %s] %s (conf=%.2f model=%s)",
				seg.StartMs, seg.SpeakerID, seg.Text, seg.Confidence, seg.Model)
		} else if chunkNum%10 == 0 {
			log.Printf("Sent chunk %d (%d bytes total)", chunkNum, totalBytes)
		}

		// Simulate real-time feed
		time.Sleep(chunkIntervalMs * time.Millisecond)
	}

	elapsed := time.Since(startTime)
	log.Printf("Finished feeding: %d chunks, %d bytes in %v", chunkNum, totalBytes, elapsed)

	// Finalize and print the transcript summary
	body, err = post(client, fmt.Sprintf("%s/v1/sessions/%s/finalize", *serverAddr, sess.ID), "application/json", nil)
	if err != nil {
		log.Fatalf("Failed to finalize session: %v", err)
	}

	var transcript transcriptInfo
	if err := json.Unmarshal(body, &transcript); err != nil {
		log.Fatalf("Failed to decode transcript: %v", err)
	}

	log.Printf("Transcript: %d segments, %d words, %dms audio, avg confidence %.2f",
		len(transcript.Segments), transcript.WordCount, transcript.DurationMs, transcript.AverageConfidence)
	log.Printf("Models used: %v (switches=%d), ~%d tokens, estimated cost $%.4f",
		transcript.ModelsUsed, transcript.ModelSwitches, transcript.EstimatedTokens, transcript.EstimatedCostUSD)
}

// post sends a request and returns the response body, failing on non-2xx status.
func post(client *http.Client, url, contentType string, payload []byte) ([]byte, error) {
	resp, err := client.Post(url, contentType, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return body, nil
}
