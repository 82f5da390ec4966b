// Package prompt renders retrieved subtitle chunks and the user's question
// into a single grounding prompt.
package prompt

import (
	"bytes"
	"encoding/json"
	"strings"

	"courseguide/internal/domain"
)

// DefaultCourse names the course the assistant guides students through.
const DefaultCourse = "Sigma web development"

// Builder produces grounding prompts. It is stateless apart from the course name.
type Builder struct {
	course string
}

// NewBuilder creates a prompt builder for the named course.
func NewBuilder(course string) *Builder {
	if strings.TrimSpace(course) == "" {
		course = DefaultCourse
	}
	return &Builder{course: course}
}

type chunkRecord struct {
	Title  string  `json:"title"`
	Number int     `json:"number"`
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Text   string  `json:"text"`
}

// Build returns the prompt for query grounded on results. Identical inputs
// always produce the identical prompt.
func (b *Builder) Build(query string, results []domain.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("I am teaching web development in my ")
	sb.WriteString(b.course)
	sb.WriteString(" course. Here are video subtitle chunks containing the video title, ")
	sb.WriteString("video number, start time in seconds, end time in seconds and the text spoken at that time:\n\n")
	sb.WriteString(renderRecords(results))
	sb.WriteString("\n-----------------------------------\n")
	sb.WriteString(`"`)
	sb.WriteString(query)
	sb.WriteString("\"\n")
	sb.WriteString("The user asked this question about the video chunks. Answer in a natural, conversational way ")
	sb.WriteString("and do not mention the format of the data above, it is only for you. ")
	sb.WriteString("Tell the user where and how much of the topic is taught, naming the video and the timestamp, ")
	sb.WriteString("and guide them to go to that particular video. ")
	sb.WriteString("If the question is unrelated to the course, politely tell them that you can only answer ")
	sb.WriteString("questions related to the course.\n")
	return sb.String()
}

func renderRecords(results []domain.ScoredChunk) string {
	records := make([]chunkRecord, len(results))
	for i, r := range results {
		records[i] = chunkRecord{
			Title:  r.Chunk.Title,
			Number: r.Chunk.Number,
			Start:  r.Chunk.Start,
			End:    r.Chunk.End,
			Text:   r.Chunk.Text,
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// encoding a slice of plain structs cannot fail
	_ = enc.Encode(records)
	return strings.TrimSuffix(buf.String(), "\n")
}
