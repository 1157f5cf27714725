// motioncue-export dumps labeled gesture recordings out of the engine's
// sqlite database as JSON files for classifier training.
package main

import (
	"flag"
	"log"

	"github.com/wearsense/motioncue/internal/gesture/actiondb"
)

func main() {
	var dbPath string
	var sessionID string
	var outDir string

	flag.StringVar(&dbPath, "db", "motioncue.db", "path to sqlite db")
	flag.StringVar(&sessionID, "session", "", "session ID to export (default: all sessions)")
	flag.StringVar(&outDir, "out", "training_data", "output directory")
	flag.Parse()

	db, err := actiondb.New(dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	sessions := []string{sessionID}
	if sessionID == "" {
		sessions, err = db.Sessions()
		if err != nil {
			log.Fatalf("list sessions: %v", err)
		}
		if len(sessions) == 0 {
			log.Fatal("no sessions in database")
		}
	}

	total := 0
	for _, id := range sessions {
		n, err := db.ExportSession(id, outDir)
		if err != nil {
			log.Fatalf("export session %s: %v", id, err)
		}
		counts, err := db.SessionActionCounts(id)
		if err != nil {
			log.Fatalf("count session %s: %v", id, err)
		}
		log.Printf("session %s: exported %d recordings %v", id, n, counts)
		total += n
	}
	log.Printf("wrote %d recordings to %s", total, outDir)
}
