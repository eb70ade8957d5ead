package database

import (
	"bufio"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const blocklistURL = "https://raw.githubusercontent.com/LDNOOBW/List-of-Dirty-Naughty-Obscene-and-Otherwise-Bad-Words/refs/heads/master/en"

// SeedModerationWords fetches and seeds the comment-moderation blocklist.
// Skipped when the table is already populated so server restarts are cheap.
func (db *DB) SeedModerationWords() error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM moderation_words").Scan(&count); err != nil {
		return fmt.Errorf("failed to check moderation words count: %w", err)
	}

	if count > 0 {
		log.Printf("Moderation blocklist already populated with %d words", count)
		return nil
	}

	log.Println("Downloading moderation blocklist...")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(blocklistURL)
	if err != nil {
		return fmt.Errorf("failed to download moderation blocklist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status code from blocklist URL: %d", resp.StatusCode)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := db.Dialect.RewriteQuery("INSERT INTO moderation_words (word) VALUES (?)")
	stmt, err := tx.Prepare(insertQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	wordsAdded := 0
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" {
			continue
		}
		if _, err := stmt.Exec(word); err != nil {
			return fmt.Errorf("failed to insert moderation word: %w", err)
		}
		wordsAdded++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read blocklist: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit moderation words: %w", err)
	}

	log.Printf("Moderation blocklist seeded with %d words", wordsAdded)
	return nil
}

// ContainsBlockedWord reports whether any word in the text is on the blocklist
func (db *DB) ContainsBlockedWord(text string) (bool, error) {
	words := strings.Fields(strings.ToLower(text))
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:'\"()")
		if word == "" {
			continue
		}

		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM moderation_words WHERE word = ?", word).Scan(&count)
		if err != nil {
			return false, fmt.Errorf("failed to check moderation word: %w", err)
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}
