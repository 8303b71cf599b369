package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"booklibrary/internal/auth"
	"booklibrary/internal/config"
	"booklibrary/internal/db"
	"booklibrary/internal/logging"
	"booklibrary/internal/model"
	"booklibrary/internal/repository"
	"booklibrary/internal/service"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:          "seed",
		Short:        "Populate the library database",
		SilenceUsage: true,
	}
	root.AddCommand(newBooksCmd(cfg), newCreateStaffCmd(cfg))
	return root
}

func openStore(cfg *config.Config) (repository.Store, error) {
	gormDB, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, err
	}
	return repository.NewStore(gormDB), nil
}

func newBooksCmd(cfg *config.Config) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Create dummy authors and books",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be positive")
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			return seedBooks(cmd.Context(), service.NewCatalogService(store, nil), count)
		},
	}
	cmd.Flags().IntVar(&count, "count", 10, "number of books to create")
	return cmd
}

// seedBooks creates books "Book 1".."Book n". Each book reuses a random one
// of the first five authors when it already exists.
func seedBooks(ctx context.Context, catalog service.CatalogService, n int) error {
	authors := make(map[string]*model.Author)
	existing, err := catalog.ListAuthors(ctx)
	if err != nil {
		return err
	}
	for i := range existing {
		authors[existing[i].FirstName] = &existing[i]
	}

	for i := 1; i <= n; i++ {
		author, ok := authors[fmt.Sprintf("Author %d", rand.IntN(5)+1)]
		if !ok {
			author, err = catalog.CreateAuthor(ctx, service.CreateAuthorInput{
				FirstName: fmt.Sprintf("Author %d", i),
				LastName:  fmt.Sprintf("Last Name %d", i),
			})
			if err != nil {
				return fmt.Errorf("create author %d: %w", i, err)
			}
			authors[author.FirstName] = author
		}

		book, err := catalog.CreateBook(ctx, service.CreateBookInput{
			Title:     fmt.Sprintf("Book %d", i),
			AuthorID:  author.ID,
			ISBN:      uuid.New().String()[:model.ISBNLength],
			PageCount: i * 50,
		})
		if err != nil {
			return fmt.Errorf("create book %d: %w", i, err)
		}
		slog.Debug("book created", "book_id", book.ID, "author_id", author.ID)
	}

	slog.Info("successfully created dummy data", "books", n)
	return nil
}

func newCreateStaffCmd(cfg *config.Config) *cobra.Command {
	var email, firstName, lastName string
	cmd := &cobra.Command{
		Use:   "createstaff",
		Short: "Create a staff user",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword("Password: ")
			if err != nil {
				return err
			}
			password2, err := readPassword("Password (again): ")
			if err != nil {
				return err
			}

			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			// Registration never issues tokens, so the JWT service is not consulted.
			authService := service.NewAuthService(store.Users(), nil, auth.NewTokenStore(store.Tokens(), nil))
			user, err := authService.Register(cmd.Context(), service.RegisterInput{
				Email:     email,
				FirstName: firstName,
				LastName:  lastName,
				Password:  password,
				Password2: password2,
				IsStaff:   true,
			})
			if err != nil {
				return err
			}
			slog.Info("staff user created", "user_id", user.ID, "email", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "staff email address")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// readPassword reads a password from the terminal without echoing it.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return trimLineEnding(string(raw)), nil
}

// trimLineEnding drops a trailing newline left by some terminals and keeps
// every other character of the password.
func trimLineEnding(s string) string {
	return strings.TrimRight(s, "\r\n")
}
