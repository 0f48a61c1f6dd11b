package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/feedsync/internal/client/models"
	"github.com/dmitrijs2005/feedsync/internal/common"
	"github.com/fatih/color"
)

func printPost(w io.Writer, p models.Post) {
	faint := color.New(color.Faint).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(w, "%s %s", faint(fmt.Sprintf("#%d", p.ID)), bold(p.Author))
	if p.OwnedByMe {
		fmt.Fprint(w, " ", cyan("(you)"))
	}
	if p.Published > 0 {
		fmt.Fprint(w, " ", faint(time.Unix(p.Published, 0).UTC().Format("2006-01-02 15:04")))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s\n", p.Content)
	if p.Attachment != nil {
		fmt.Fprintf(w, "  %s %s\n", faint(string(p.Attachment.Type)), p.Attachment.URL)
	}

	heart := "♡"
	if p.LikedByMe {
		heart = red("♥")
	}
	fmt.Fprintf(w, "  %s %d\n", heart, p.Likes)
}

// describe renders err with its failure kind for the user.
func describe(err error) string {
	var ce *common.Error
	if !errors.As(err, &ce) {
		return err.Error()
	}
	switch ce.Kind {
	case common.KindNetwork:
		return "server unreachable, try again later"
	case common.KindAPI:
		return fmt.Sprintf("server rejected the request: %d %s", ce.Code, ce.Message)
	default:
		return ce.Error()
	}
}
