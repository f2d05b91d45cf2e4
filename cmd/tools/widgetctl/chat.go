package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/linguabot/backend/internal/locale"
	"github.com/zhouzirui/linguabot/backend/internal/model/chat"
	"github.com/zhouzirui/linguabot/backend/internal/model/language"
	"github.com/zhouzirui/linguabot/backend/internal/service/responder"
	"github.com/zhouzirui/linguabot/backend/internal/service/widget"
)

const chatHelp = `/open /close      toggle the panel
/lang <code>      switch language
/human            ask for an agent
/questions        list common questions
/q <n>            pick question n
/feedback <1-5>   rate the conversation
/offline /online  simulate connectivity
/quit             leave`

func newChatCommand() *cobra.Command {
	var lang string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the widget in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := locale.Load()
			if err != nil {
				return err
			}
			online := &widget.OnlineFlag{}
			ctrl := widget.NewController(widget.Deps{
				Texts:        catalog,
				Responder:    responder.New(catalog),
				Languages:    language.NewMemoryStore(language.Seed()),
				Connectivity: online,
			}, widget.Config{}, widget.Options{SessionID: uuid.NewString(), Language: lang})
			defer ctrl.Close()

			return newConsole(ctrl, catalog, online, cmd.OutOrStdout()).run(cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "starting language code")
	return cmd
}

type console struct {
	ctrl    *widget.Controller
	catalog *locale.Catalog
	online  *widget.OnlineFlag
	out     io.Writer
}

func newConsole(ctrl *widget.Controller, catalog *locale.Catalog, online *widget.OnlineFlag, out io.Writer) *console {
	c := &console{ctrl: ctrl, catalog: catalog, online: online, out: out}
	ctrl.Subscribe(c.print)
	return c
}

func (c *console) print(u widget.Update) {
	switch u.Event.Kind {
	case widget.EventMessageAppended:
		if u.Event.Message.Sender == chat.SenderBot {
			fmt.Fprintf(c.out, "bot> %s\n", u.Event.Message.Content)
		}
	case widget.EventTypingChanged:
		if u.Event.Flag {
			fmt.Fprintln(c.out, "bot is typing…")
		}
	}
}

func (c *console) run(in io.Reader) error {
	fmt.Fprintln(c.out, chatHelp)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		quit, err := c.handle(scanner.Text())
		if err != nil {
			fmt.Fprintf(c.out, "! %v\n", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

func (c *console) handle(line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, c.ctrl.SendUserMessage(line)
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "quit", "exit":
		return true, nil
	case "open":
		if c.ctrl.Snapshot().IsOpen {
			return false, nil
		}
		return false, c.ctrl.Toggle()
	case "close":
		if !c.ctrl.Snapshot().IsOpen {
			return false, nil
		}
		return false, c.ctrl.Toggle()
	case "lang":
		return false, c.ctrl.ChangeLanguage(arg)
	case "human":
		return false, c.ctrl.RequestHuman()
	case "questions":
		for i, q := range c.catalog.Questions(c.ctrl.Language()) {
			fmt.Fprintf(c.out, "  %d. %s\n", i+1, q)
		}
		return false, c.ctrl.QuickAction(widget.ActionCommonQuestions)
	case "q":
		questions := c.catalog.Questions(c.ctrl.Language())
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(questions) {
			return false, fmt.Errorf("pick a question between 1 and %d", len(questions))
		}
		return false, c.ctrl.SelectQuestion(questions[n-1])
	case "feedback":
		rating, err := strconv.Atoi(arg)
		if err != nil {
			return false, errors.New("rating must be a number")
		}
		return false, c.ctrl.SubmitFeedback(rating, "")
	case "offline":
		c.online.Set(false)
		return false, nil
	case "online":
		c.online.Set(true)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command /%s", cmd)
	}
}
