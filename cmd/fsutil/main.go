// Fsutil is a small command line tool to inspect and drive a file
// storage server. It is intended for development and operations use.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/catbridge/filestorage/client"
)

var (
	server = flag.String("server", "http://localhost:14000", "url of the storage server")
	token  = flag.String("token", "", "API token to use")
	usage  = `
fsutil <command> <command arguments>

Possible commands:
    newsession

    stage <session>

    hashes <session>

    delete-queue <session>

    cache-orig <hash> <lang>
    cache-xliff <hash> <lang>

    promote <date hash path> <lang> <file id>

    project-orig <file id> <date hash path>
    project-xliff <file id> <date hash path>

    analysis <project id>
    delete-analysis <project id>

    cache-zip <hash> <local zip path>
    link-zip <create date YYYY-MM-DD> <hash> <project id>
`
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Println(usage)
		return
	}

	c := &client.Connection{HostURL: *server, Token: *token}

	var err error
	switch args[0] {
	case "newsession":
		donewsession()
	case "stage":
		err = c.StageQueue(args[1])
	case "hashes":
		err = dohashes(c, args[1])
	case "delete-queue":
		err = c.DeleteQueue(args[1])
	case "cache-orig":
		err = dokey(c.CacheOriginal(args[1], args[2]))
	case "cache-xliff":
		err = dokey(c.CacheXliff(args[1], args[2]))
	case "promote":
		err = dopromote(c, args[1], args[2], args[3])
	case "project-orig":
		err = doprojectkey(c.ProjectOriginal, args[1], args[2])
	case "project-xliff":
		err = doprojectkey(c.ProjectXliff, args[1], args[2])
	case "analysis":
		err = doanalysis(c, args[1])
	case "delete-analysis":
		err = dodeleteanalysis(c, args[1])
	case "cache-zip":
		err = c.CacheZip(args[1], args[2])
	case "link-zip":
		err = dolinkzip(c, args[1], args[2], args[3])
	default:
		fmt.Println(usage)
	}
	if err != nil {
		fmt.Println("Error:", err.Error())
		os.Exit(1)
	}
}

// donewsession prints a fresh upload session name in the form the
// upload tier uses: a GUID in braces.
func donewsession() {
	fmt.Printf("{%s}\n", uuid.NewString())
}

func dohashes(c *client.Connection, session string) error {
	v, err := c.QueueHashes(session)
	if err != nil {
		return err
	}
	shas, err := v.GetStringArray("conversionHashes", "sha")
	if err != nil {
		return err
	}
	names, err := v.GetObject("conversionHashes", "fileName")
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 5, 1, 3, ' ', 0)
	for _, sha := range shas {
		files, _ := names.GetStringArray(sha)
		fmt.Fprintf(w, "%s\t%v\n", sha, files)
	}
	return w.Flush()
}

func dokey(key string, err error) error {
	if err != nil {
		return err
	}
	fmt.Println(key)
	return nil
}

func dopromote(c *client.Connection, dateHashPath, lang, fileID string) error {
	id, err := strconv.ParseInt(fileID, 10, 64)
	if err != nil {
		return err
	}
	return c.Promote(dateHashPath, lang, id)
}

func doprojectkey(lookup func(int64, string) (string, error), fileID, dateHashPath string) error {
	id, err := strconv.ParseInt(fileID, 10, 64)
	if err != nil {
		return err
	}
	return dokey(lookup(id, dateHashPath))
}

func doanalysis(c *client.Connection, projectID string) error {
	id, err := strconv.ParseInt(projectID, 10, 64)
	if err != nil {
		return err
	}
	v, err := c.Analysis(id)
	if err != nil {
		return err
	}
	segments, err := v.GetObjectArray("segments")
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 5, 1, 3, ' ', 0)
	fmt.Fprintf(w, "File\tSegment\tWords\tText\n")
	for _, seg := range segments {
		fid, _ := seg.GetInt64("file_id")
		sid, _ := seg.GetString("internal_id")
		words, _ := seg.GetFloat64("word_count")
		text, _ := seg.GetString("text")
		fmt.Fprintf(w, "%d\t%s\t%g\t%s\n", fid, sid, words, text)
	}
	return w.Flush()
}

func dodeleteanalysis(c *client.Connection, projectID string) error {
	id, err := strconv.ParseInt(projectID, 10, 64)
	if err != nil {
		return err
	}
	return c.DeleteAnalysis(id)
}

func dolinkzip(c *client.Connection, createDate, hash, projectID string) error {
	date, err := time.Parse("2006-01-02", createDate)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(projectID, 10, 64)
	if err != nil {
		return err
	}
	return c.LinkZip(date, hash, id)
}
