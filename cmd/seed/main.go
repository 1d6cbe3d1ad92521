// seed creates two verified users, a shared project and a few tasks in the
// local dev database, one of them due soon enough for the next reminder sweep.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ErlanBelekov/task-tracker/internal/auth"
	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/infrastructure/postgres"
)

const (
	seedPassword = "seed-Lantern-Harbor-42"
	seedProject  = "Seed project"
)

type seedUser struct {
	username string
	email    string
	fullname string
}

var (
	admin  = seedUser{"seedadmin", "admin@seed.local", "Seed Admin"}
	member = seedUser{"seedmember", "member@seed.local", "Seed Member"}
)

type taskSpec struct {
	title       string
	tags        []string
	due         time.Duration
	assignAdmin bool
}

var tasks = []taskSpec{
	{"Due within the reminder window", []string{"reminder"}, 2 * time.Hour, false},
	{"Already overdue", []string{"reminder", "overdue"}, -3 * time.Hour, false},
	{"Next week", []string{"planning"}, 7 * 24 * time.Hour, false},
	{"Admin's own task", nil, 30 * time.Hour, true},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set, run: direnv allow")
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{URL: dbURL, MaxConns: 2})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	users := postgres.NewUserRepository(pool)
	projects := postgres.NewProjectRepository(pool)
	members := postgres.NewMembershipRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)

	hash, err := auth.HashPassword(seedPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	adminUser := mustUser(ctx, users, admin, hash)
	memberUser := mustUser(ctx, users, member, hash)

	project, created := mustProject(ctx, projects, adminUser.ID)
	if _, err := members.Add(ctx, &domain.Membership{
		ProjectID: project.ID,
		UserID:    memberUser.ID,
		Role:      domain.RoleMember,
	}); err != nil && !errors.Is(err, domain.ErrAlreadyMember) {
		log.Fatalf("add member: %v", err)
	}

	var taskIDs []string
	if created {
		now := time.Now().UTC()
		for _, spec := range tasks {
			assignee := memberUser.ID
			if spec.assignAdmin {
				assignee = adminUser.ID
			}
			t, err := taskRepo.Create(ctx, &domain.Task{
				ProjectID:  project.ID,
				Title:      spec.title,
				AssignedTo: assignee,
				AssignedBy: adminUser.ID,
				Status:     domain.TaskStatusTodo,
				Tags:       spec.tags,
				DueDate:    now.Add(spec.due),
			})
			if err != nil {
				log.Fatalf("create task %q: %v", spec.title, err)
			}
			taskIDs = append(taskIDs, t.ID)
		}
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  Admin:    %s / %s\n", admin.email, seedPassword)
	fmt.Printf("  Member:   %s / %s\n", member.email, seedPassword)
	fmt.Printf("  Project:  %s (%s)\n", project.Name, project.ID)
	if created {
		fmt.Printf("  Tasks:    %d created\n", len(taskIDs))
	} else {
		fmt.Println("  Tasks:    skipped, project already existed")
	}
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1, log in:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/api/v1/auth/login \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", member.email, seedPassword)
	fmt.Println()
	fmt.Println("  Step 2, list your tasks:")
	fmt.Println()
	fmt.Println("    export JWT=eyJ...")
	fmt.Println("    curl -s http://localhost:8080/api/v1/tasks -H \"Authorization: Bearer $JWT\"")
	fmt.Println()
	fmt.Println("  Step 3, trigger a reminder sweep without waiting for the cron:")
	fmt.Println()
	fmt.Println("    REMINDER_RUN_ON_START=true go run ./cmd/scheduler")
	fmt.Println("    # the two tasks tagged 'reminder' are emailed once; a second run sends nothing")
}

func mustUser(ctx context.Context, users *postgres.UserRepository, s seedUser, hash string) *domain.User {
	u, err := users.Create(ctx, &domain.User{
		Username:        s.username,
		Email:           s.email,
		Fullname:        s.fullname,
		PasswordHash:    hash,
		IsEmailVerified: true,
	})
	if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, domain.ErrUsernameTaken) {
		u, err = users.FindByEmail(ctx, s.email)
	}
	if err != nil {
		log.Fatalf("upsert user %s: %v", s.email, err)
	}
	return u
}

// mustProject reports whether the project was created by this run.
func mustProject(ctx context.Context, projects *postgres.ProjectRepository, adminID string) (*domain.Project, bool) {
	p, err := projects.CreateWithAdmin(ctx, &domain.Project{Name: seedProject, CreatedBy: adminID})
	if err == nil {
		return p, true
	}
	if !errors.Is(err, domain.ErrProjectNameTaken) {
		log.Fatalf("create project: %v", err)
	}
	existing, err := projects.ListByMember(ctx, adminID)
	if err != nil {
		log.Fatalf("list projects: %v", err)
	}
	for _, p := range existing {
		if p.Name == seedProject {
			return p, false
		}
	}
	log.Fatalf("project %q exists but %s is not a member", seedProject, admin.email)
	return nil, false
}
