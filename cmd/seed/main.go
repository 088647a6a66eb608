package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"

	"bookcatalog/internal/book"
	"bookcatalog/internal/config"
	"bookcatalog/internal/platform/database"
)

func main() {
	count := flag.Int("count", 0, "Number of generated books to insert after the sample catalog")
	flag.Parse()

	config.LoadEnvFiles()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.OpenPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	repo := book.NewPostgresRepo(pool, cfg.QueryTimeout)

	inputs := append(sampleBooks(), generatedBooks(*count, rand.New(rand.NewSource(1)))...)
	log.Printf("Inserting %d books...", len(inputs))

	for i, in := range inputs {
		b := in.toBook()
		if err := repo.Create(ctx, &b); err != nil {
			log.Fatalf("Failed to insert %q: %v", b.Title, err)
		}
		if (i+1)%500 == 0 {
			log.Printf("Inserted %d/%d books", i+1, len(inputs))
		}
	}

	_, total, err := repo.List(ctx, book.Query{Limit: 1})
	if err != nil {
		log.Fatalf("Failed to count books: %v", err)
	}
	log.Printf("Successfully inserted %d books, total in database: %d", len(inputs), total)
}

type seedBook struct {
	title, author, genre, description, isbn string
	year                                    int
}

func (s seedBook) toBook() book.Book {
	b := book.Book{
		Title:         s.title,
		Author:        s.author,
		PublishedYear: s.year,
		Genre:         s.genre,
	}
	if s.description != "" {
		b.Description = &s.description
	}
	if s.isbn != "" {
		b.ISBN = &s.isbn
	}
	return b
}

func sampleBooks() []seedBook {
	return []seedBook{
		{title: "Pride and Prejudice", author: "Jane Austen", year: 1813, genre: "Classic Fiction", isbn: "978-0141439518",
			description: "A witty portrait of manners and marriage in Regency England."},
		{title: "Great Expectations", author: "Charles Dickens", year: 1861, genre: "Classic Fiction", isbn: "978-0141439563"},
		{title: "Moby-Dick", author: "Herman Melville", year: 1851, genre: "Classic Fiction", isbn: "978-0142437247"},
		{title: "Dune", author: "Frank Herbert", year: 1965, genre: "Science Fiction", isbn: "978-0441013593",
			description: "Politics, religion and ecology on the desert planet Arrakis."},
		{title: "The Left Hand of Darkness", author: "Ursula K. Le Guin", year: 1969, genre: "Science Fiction"},
		{title: "Sapiens", author: "Yuval Noah Harari", year: 2011, genre: "History", isbn: "978-0062316097"},
		{title: "The Gene", author: "Siddhartha Mukherjee", year: 2016, genre: "Science"},
		{title: "The Pragmatic Programmer", author: "Andrew Hunt", year: 1999, genre: "Technology", isbn: "978-0201616224"},
		{title: "Rebecca", author: "Daphne du Maurier", year: 1938, genre: "Mystery"},
		{title: "Meditations", author: "Marcus Aurelius", year: 180, genre: "Philosophy"},
	}
}

func generatedBooks(n int, rng *rand.Rand) []seedBook {
	genres := []string{"Fiction", "Science Fiction", "History", "Science", "Technology", "Romance", "Mystery", "Biography", "Philosophy", "Art"}
	authors := []string{"A. Writer", "B. Novelist", "C. Historian", "D. Scientist", "E. Poet", "F. Critic"}

	out := make([]seedBook, 0, n)
	for i := 0; i < n; i++ {
		word := randomWord(rng)
		out = append(out, seedBook{
			title:       fmt.Sprintf("Book Title %d - %s", i+1, word),
			author:      authors[rng.Intn(len(authors))],
			year:        1950 + rng.Intn(75),
			genre:       genres[rng.Intn(len(genres))],
			description: fmt.Sprintf("This is a book about %s.", randomWord(rng)),
		})
	}
	return out
}

func randomWord(rng *rand.Rand) string {
	words := []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
		"Past", "Present", "Reality", "Imagination", "Wisdom", "Life", "Death",
		"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
	}
	return words[rng.Intn(len(words))]
}
