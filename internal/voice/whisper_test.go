package voice

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestEncodeWAV(t *testing.T) {
	data := pcm(100, 200)
	wav := EncodeWAV(data, 16000)

	if len(wav) != 44+len(data) {
		t.Fatalf("wav is %d bytes", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
		t.Errorf("bad chunk ids: %q", wav[:40])
	}
	if got := binary.LittleEndian.Uint32(wav[4:]); got != uint32(36+len(data)) {
		t.Errorf("riff size = %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:]); got != 16000 {
		t.Errorf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[28:]); got != 32000 {
		t.Errorf("byte rate = %d", got)
	}
	if got := binary.LittleEndian.Uint16(wav[34:]); got != 16 {
		t.Errorf("bits per sample = %d", got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:]); got != uint32(len(data)) {
		t.Errorf("data size = %d", got)
	}
	if !bytes.Equal(wav[44:], data) {
		t.Error("samples not copied")
	}
}

func TestWhisperTranscriber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("bad multipart body: %v", err)
			return
		}
		if r.FormValue("model") != "whisper-1" || r.FormValue("language") != "en" || r.FormValue("response_format") != "json" {
			t.Errorf("unexpected fields: %v", r.MultipartForm.Value)
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if string(data[:4]) != "RIFF" {
			t.Error("file is not a wav")
		}
		w.Write([]byte(`{"text":" What is CSS?"}`))
	}))
	defer server.Close()

	text, err := NewWhisperTranscriber(WhisperConfig{BaseURL: server.URL}).
		Transcribe(context.Background(), EncodeWAV(pcm(100), 16000))
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if text != " What is CSS?" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestWhisperTranscriber_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewWhisperTranscriber(WhisperConfig{BaseURL: server.URL}).
		Transcribe(context.Background(), EncodeWAV(nil, 16000))
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCommandMicrophone_MissingBinary(t *testing.T) {
	mic := NewCommandMicrophone([]string{"courseguide-no-such-recorder", "-r", "{rate}"}, 0)
	if _, err := mic.Open(context.Background()); err == nil {
		t.Error("expected error for missing recorder")
	}
}
