package main

import (
	"log"

	"github.com/WuKongIM/wkfcgi/cmd"
	"github.com/WuKongIM/wkfcgi/version"
	"go.uber.org/automaxprocs/maxprocs"
)

// go ldflags
var Version string    // version
var Commit string     // git commit id
var CommitDate string // git commit date
var TreeState string  // git tree state

func main() {

	version.Version = Version
	version.Commit = Commit
	version.CommitDate = CommitDate
	version.TreeState = TreeState

	undo, err := maxprocs.Set(maxprocs.Logger(log.Printf))
	defer undo()
	if err != nil {
		log.Printf("maxprocs set error: %v", err)
	}

	cmd.Execute()

}
