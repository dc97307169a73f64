// Command sse-demo wires the indexer, single-user client/server, and
// multi-user extension together end to end: index a document, build and
// upload a secure index, issue a state, and run a query as an authorised
// reader.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/op/go-logging"
	"github.com/satori/go.uuid"
	"github.com/urfave/cli/v2"

	"krypt.co/sse/sse"
	"krypt.co/sse/sse/multiuser"
)

var log = logging.MustGetLogger("sse-demo")

func main() {
	app := &cli.App{
		Name:  "sse-demo",
		Usage: "index a document and query it through the multi-user SSE core",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "index an inline string, then search it for a word",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "text", Usage: "document text to index", Required: true},
					&cli.StringFlag{Name: "word", Usage: "word to search for", Required: true},
					&cli.StringFlag{Name: "domain", Value: "d1", Usage: "domain name to build"},
				},
				Action: runDemo,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runDemo(c *cli.Context) error {
	docUUID, err := uuid.NewV4()
	if err != nil {
		return err
	}
	docID := docUUID.String()
	text := c.String("text")
	word := c.String("word")
	domain := c.String("domain")

	ix := sse.NewIndexer(docID)
	if _, err := ix.Write([]byte(text)); err != nil {
		return err
	}
	sketch, size := ix.Finalize()
	log.Infof("indexed %q as doc %s (%d bytes, %d distinct tokens)", text, docID, size, len(sketch.List))

	owner, err := multiuser.NewOwner()
	if err != nil {
		return err
	}
	server, err := multiuser.NewServer(nil)
	if err != nil {
		return err
	}

	secureIndex, err := owner.SecureIndex(domain, size, sketch)
	if err != nil {
		return err
	}
	if merge, err := server.Inner().Update(domain, secureIndex, nil); err != nil {
		return err
	} else if merge != nil {
		return fmt.Errorf("server rejected update: domain %s has %d docs already", merge.Domain, len(merge.Docs))
	}

	reader, err := multiuser.NewReader()
	if err != nil {
		return err
	}
	owner.SetRecipient("reader", reader.PublicKey())
	owner.SetRecipient("server", server.PublicKey())

	packed, err := owner.PackKeys("server")
	if err != nil {
		return err
	}
	if err := reader.UnpackKeys(packed); err != nil {
		return err
	}

	sealedState, _, err := owner.State()
	if err != nil {
		return err
	}
	if err := server.State(sealedState); err != nil {
		return err
	}

	query, err := reader.CreateQuery(sealedState, word)
	if err != nil {
		return err
	}

	results, err := server.Search(query)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	fmt.Println(strings.Join(ids, ", "))
	return nil
}
