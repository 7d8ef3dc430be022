// package formatter renders the mirrored library for the terminal and exports playlists
// to CSV, Markdown and plain text.
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/relisten/internal/models"
	"github.com/desertthunder/relisten/internal/shared"
)

// Export is a playlist with its entries resolved against the library.
//
// Entries whose song is missing from the library are left out.
type Export struct {
	Playlist models.Playlist
	Songs    []models.Song
}

// NewExport resolves p against library.
func NewExport(p models.Playlist, library []models.Song) *Export {
	return &Export{Playlist: p, Songs: p.Resolve(library)}
}

// Length returns the total duration of the resolved songs.
func (e *Export) Length() time.Duration {
	var total time.Duration
	for _, s := range e.Songs {
		total += s.Length()
	}
	return total
}

// ExportToCSV converts an Export to CSV format with columns: ID, Title, Artist, Album, Duration, Year
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "Year"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, song := range export.Songs {
		record := []string{
			song.ID,
			songTitle(song),
			song.Artist,
			song.AlbumName,
			shared.FormatDuration(song.Length()),
			string(song.Year),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an Export to Markdown format
func ExportToMarkdown(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Playlist.Name)
	fmt.Fprintf(&buf, "**Songs**: %d\n", len(export.Songs))
	fmt.Fprintf(&buf, "**Length**: %s\n", shared.FormatDuration(export.Length()))
	if export.Playlist.UpdatedAt != 0 {
		fmt.Fprintf(&buf, "**Updated**: %s\n", Since(export.Playlist.UpdatedAt))
	}

	buf.WriteString("\n## Songs\n\n")
	for i, song := range export.Songs {
		albumPart := ""
		if song.AlbumName != "" {
			albumPart = fmt.Sprintf(" (%s)", song.AlbumName)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n",
			i+1, song.Artist, songTitle(song), albumPart, shared.FormatDuration(song.Length()))
	}

	return buf.Bytes(), nil
}

// ExportToText converts an Export to plain text format
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(export.Songs))

	for i, song := range export.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, song.Artist, songTitle(song))
	}

	return buf.Bytes(), nil
}

type playlistMetadata struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Entries   int    `json:"entries"`
	Resolved  int    `json:"resolved"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without songs)
func ToMetadataJSON(export *Export) ([]byte, error) {
	p := export.Playlist
	return json.MarshalIndent(playlistMetadata{
		ID:        p.ID,
		Name:      p.Name,
		Entries:   len(p.Songs),
		Resolved:  len(export.Songs),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}, "", "  ")
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	SongsFile    string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_songs.csv and {base}_metadata.json
func WriteCSVExport(export *Export, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	songsFile := baseFilepath + "_songs.csv"
	if err := os.WriteFile(songsFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{SongsFile: songsFile, MetadataFile: metadataFile}, nil
}

// WriteMarkdownExport writes {dir}/README.md. The directory defaults to the playlist ID.
func WriteMarkdownExport(export *Export, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = export.Playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return mdFile, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_songs.txt as the filename.
func WriteTextExport(export *Export, path string) (string, error) {
	if path == "" {
		path = export.Playlist.ID + "_songs.txt"
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

func songTitle(s models.Song) string {
	if s.Title != "" {
		return s.Title
	}
	return s.FileName
}
