package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/story-client/internal/config"
	"github.com/jwebster45206/story-client/internal/session"
	"github.com/jwebster45206/story-client/pkg/stream"
	"github.com/jwebster45206/story-client/pkg/world"
)

const AgentName = "Narrator"

var titleCaser = cases.Title(language.English)

type noticeKind int

const (
	noticeWorldUpdated noticeKind = iota
	noticeScenarioImage
	noticePortrait
	noticeActionFailed
	noticeEventStarted
	noticeNarrative
	noticeChoices
	noticeExitable
	noticeEventEnded
)

type notice struct {
	kind    noticeKind
	id      string
	action  string
	err     error
	title   string
	options []stream.ChoiceOption
}

// noticeBridge adapts session.Presenter callbacks into a queue the UI
// drains after executing each session task. Every callback runs on the
// goroutine executing those tasks, so no locking is needed.
type noticeBridge struct {
	pending []notice
}

func (b *noticeBridge) push(n notice) {
	b.pending = append(b.pending, n)
}

func (b *noticeBridge) drain() []notice {
	out := b.pending
	b.pending = nil
	return out
}

func (b *noticeBridge) WorldUpdated() { b.push(notice{kind: noticeWorldUpdated}) }

func (b *noticeBridge) ScenarioImageReady(id string) {
	b.push(notice{kind: noticeScenarioImage, id: id})
}

func (b *noticeBridge) CharacterPortraitReady(id string) {
	b.push(notice{kind: noticePortrait, id: id})
}

func (b *noticeBridge) ActionFailed(action string, err error) {
	b.push(notice{kind: noticeActionFailed, action: action, err: err})
}

func (b *noticeBridge) EventStarted(id string, _ []string) {
	b.push(notice{kind: noticeEventStarted, id: id})
}

func (b *noticeBridge) NarrativeUpdated() { b.push(notice{kind: noticeNarrative}) }

func (b *noticeBridge) ChoicesOffered(title string, options []stream.ChoiceOption) {
	b.push(notice{kind: noticeChoices, title: title, options: options})
}

func (b *noticeBridge) EventExitable() { b.push(notice{kind: noticeExitable}) }

func (b *noticeBridge) EventEnded(id string) { b.push(notice{kind: noticeEventEnded, id: id}) }

type uiMode int

const (
	modeWorld uiMode = iota
	modeEvent
)

type travelOption struct {
	direction    string
	scenarioID   string
	scenarioName string
	blocked      bool
}

type contextualChoice struct {
	characterID string
	option      *world.ContextualOption
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	cfg    *config.Config
	sess   *session.Session
	bridge *noticeBridge

	storyViewport viewport.Model
	metaViewport  viewport.Model
	ready         bool
	width         int
	height        int
	busy          bool
	statusLine    string

	mode uiMode

	// Travel modal state
	showTravelModal bool
	travelOptions   []travelOption
	selectedTravel  int

	// Interaction modal state
	showActionsModal bool
	actionOptions    []contextualChoice
	selectedAction   int

	// Pending player choice state
	awaitingChoice bool
	choiceTitle    string
	choiceOptions  []stream.ChoiceOption
	selectedChoice int

	exitable bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type sessionTaskMsg struct {
	fn func()
}

type worldPollMsg struct{}

type progressTickMsg struct{}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	thoughtStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *config.Config, sess *session.Session, bridge *noticeBridge) ConsoleUI {
	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	// Bootstrap already ran; its notifications carry no state the first
	// render does not pick up from the session directly.
	bridge.drain()

	return ConsoleUI{
		cfg:           cfg,
		sess:          sess,
		bridge:        bridge,
		storyViewport: storyVp,
		metaViewport:  metaVp,
		mode:          modeWorld,
	}
}

// waitForTask blocks on the session's completion queue and hands the
// next task to Update.
func waitForTask(sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		fn, ok := <-sess.Tasks()
		if !ok {
			return nil
		}
		return sessionTaskMsg{fn: fn}
	}
}

func worldPoll(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return worldPollMsg{}
	})
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(waitForTask(m.sess), worldPoll(m.cfg.PollInterval))
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		svCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case sessionTaskMsg:
		msg.fn()
		m.processNotices(m.bridge.drain())
		m.refreshPanels()
		return m, waitForTask(m.sess)

	case worldPollMsg:
		// Incremental catch-up keeps the mirror fresh while the player
		// idles; during a narrative event the stream drives updates.
		if m.mode == modeWorld && !m.busy {
			m.sess.Refresh()
		}
		return m, worldPoll(m.cfg.PollInterval)

	case progressTickMsg:
		if m.busy {
			m.progressTick++
			m.refreshPanels()
			return m, progressTick()
		}

	case tea.MouseMsg:
		m.storyViewport, svCmd = m.storyViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(svCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		storyWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - storyWidth - 6

		m.storyViewport.Width = storyWidth - 2
		m.storyViewport.Height = m.height - 6
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4

		m.ready = true
		m.refreshPanels()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	m.storyViewport, svCmd = m.storyViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(svCmd, mvCmd)
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showTravelModal {
		return m.updateTravelModal(msg)
	}
	if m.showActionsModal {
		return m.updateActionsModal(msg)
	}

	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.showQuitModal = true
		return m, nil

	case tea.KeyUp:
		if m.awaitingChoice && m.selectedChoice > 0 {
			m.selectedChoice--
			m.refreshPanels()
			return m, nil
		}

	case tea.KeyDown:
		if m.awaitingChoice && m.selectedChoice < len(m.choiceOptions)-1 {
			m.selectedChoice++
			m.refreshPanels()
			return m, nil
		}

	case tea.KeyEnter:
		if m.busy {
			return m, nil
		}
		if m.mode == modeEvent {
			return m.advanceNarrative()
		}
	}

	if m.mode == modeWorld && !m.busy {
		switch msg.String() {
		case "m", "M":
			m.travelOptions = m.buildTravelOptions()
			if len(m.travelOptions) == 0 {
				m.statusLine = promptStyle.Render("There is nowhere to go from here.")
				m.refreshPanels()
				return m, nil
			}
			m.showTravelModal = true
			m.selectedTravel = 0
			return m, nil
		case "t", "T":
			m.actionOptions = m.buildActionOptions()
			if len(m.actionOptions) == 0 {
				m.statusLine = promptStyle.Render("No one here has anything for you.")
				m.refreshPanels()
				return m, nil
			}
			m.showActionsModal = true
			m.selectedAction = 0
			return m, nil
		}
	}

	switch msg.String() {
	case "c", "C":
		m.copyStoryText()
		m.refreshPanels()
		return m, nil
	}

	return m, nil
}

// advanceNarrative applies the Enter gesture inside a narrative event:
// submit the pending choice, step to the next entry, or exit once the
// segment allows it.
func (m ConsoleUI) advanceNarrative() (tea.Model, tea.Cmd) {
	if m.awaitingChoice {
		if len(m.choiceOptions) == 0 {
			return m, nil
		}
		label := m.choiceOptions[m.selectedChoice].Label
		m.awaitingChoice = false
		m.busy = true
		m.progressTick = 0
		m.sess.SubmitChoice(label)
		m.refreshPanels()
		return m, progressTick()
	}

	if m.sess.Advance() {
		m.processNotices(m.bridge.drain())
		m.refreshPanels()
		return m, nil
	}

	if m.exitable {
		m.sess.ExitEvent()
		m.processNotices(m.bridge.drain())
		m.refreshPanels()
	}
	return m, nil
}

func (m *ConsoleUI) processNotices(notices []notice) {
	for _, n := range notices {
		switch n.kind {
		case noticeWorldUpdated, noticeScenarioImage, noticePortrait:
			// Panels are rebuilt after every batch.

		case noticeActionFailed:
			m.busy = false
			if n.action == "choice" {
				// The choice is still pending; let the player retry.
				m.awaitingChoice = true
			}
			m.statusLine = errorStyle.Render(fmt.Sprintf("Error (%s): %v", n.action, n.err))

		case noticeEventStarted:
			m.mode = modeEvent
			m.busy = true
			m.progressTick = 0
			m.awaitingChoice = false
			m.choiceOptions = nil
			m.exitable = false
			m.statusLine = ""

		case noticeNarrative:
			m.busy = false
			// Content is revealed in full as soon as it renders.
			if m.mode == modeEvent {
				m.sess.MarkShown()
			}

		case noticeChoices:
			m.busy = false
			m.awaitingChoice = true
			m.choiceTitle = n.title
			m.choiceOptions = n.options
			m.selectedChoice = 0

		case noticeExitable:
			m.exitable = true

		case noticeEventEnded:
			m.mode = modeWorld
			m.busy = false
			m.awaitingChoice = false
			m.choiceOptions = nil
			m.exitable = false
			m.statusLine = ""
		}
	}
}

func (m *ConsoleUI) refreshPanels() {
	if !m.ready {
		return
	}
	m.writeStoryContent()
	m.metaViewport.SetContent(m.writeMetadata())
}

// currentScenario resolves the scenario the player stands in, falling
// back to the player character's residency before the first move.
func (m *ConsoleUI) currentScenario() *world.Scenario {
	st := m.sess.World()
	if st.CurrentScenarioID != "" {
		return st.Scenario(st.CurrentScenarioID)
	}
	if pc := st.Character(st.PlayerCharacterID); pc != nil && pc.PresentInScenario != "" {
		return st.Scenario(pc.PresentInScenario)
	}
	return nil
}

func (m *ConsoleUI) speakerName(id string) string {
	if id == "" {
		return AgentName
	}
	if c := m.sess.World().Character(id); c != nil {
		if name := c.DisplayName(); name != "" {
			return name
		}
	}
	return titleCaser.String(strings.ReplaceAll(id, "_", " "))
}

func (m *ConsoleUI) writeStoryContent() {
	storyWidth := m.storyViewport.Width - 6 // Account for left(3) + right(3) padding

	var content strings.Builder
	content.WriteString(titleStyle.Render("STORY CLIENT") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(storyWidth-6, 1))) + "\n\n")

	if m.mode == modeEvent {
		m.writeNarrative(&content, storyWidth)
	} else {
		m.writeScene(&content, storyWidth)
	}

	if m.busy {
		content.WriteString(m.renderProgressBar())
		content.WriteString("\n")
	}
	if m.statusLine != "" {
		content.WriteString("\n" + m.statusLine + "\n")
	}

	m.storyViewport.SetContent(content.String())
	m.storyViewport.GotoBottom()
}

// writeScene renders the world view: the current location, who is there,
// and which exits lead away.
func (m *ConsoleUI) writeScene(content *strings.Builder, width int) {
	sc := m.currentScenario()
	if sc == nil {
		content.WriteString(loadingStyle.Render("Waiting for the world to arrive...") + "\n")
		return
	}

	name := sc.Name
	if name == "" {
		name = sc.ID
	}
	content.WriteString(speakerStyle.Render(name) + "\n")
	if sc.Zone != "" {
		content.WriteString(promptStyle.Render(titleCaser.String(sc.Zone)) + "\n")
	}
	content.WriteString("\n")

	desc := sc.VisualDescription
	if desc == "" {
		desc = sc.SummaryDescription
	}
	if desc != "" {
		content.WriteString(narratorStyle.Render(wordwrap.String(desc, width)) + "\n\n")
	}

	residents := m.sess.World().ResidentCharacters(sc.ID)
	var names []string
	for _, c := range residents {
		if c.ID == m.sess.World().PlayerCharacterID {
			continue
		}
		names = append(names, m.speakerName(c.ID))
	}
	if len(names) > 0 {
		content.WriteString("Here: " + strings.Join(names, ", ") + "\n\n")
	}

	exits := m.buildTravelOptions()
	if len(exits) > 0 {
		content.WriteString(promptStyle.Render("Exits:") + "\n")
		for _, exit := range exits {
			line := fmt.Sprintf("• %s: %s", titleCaser.String(exit.direction), exit.scenarioName)
			if exit.blocked {
				line += errorStyle.Render(" (blocked)")
			}
			content.WriteString(line + "\n")
		}
	}
}

// writeNarrative renders the timeline up to the current entry.
func (m *ConsoleUI) writeNarrative(content *strings.Builder, width int) {
	tl := m.sess.Timeline()
	entries := tl.Entries()
	if len(entries) == 0 {
		content.WriteString(loadingStyle.Render("...") + "\n")
		return
	}

	last := tl.CurrentIndex()
	for i := 0; i <= last && i < len(entries); i++ {
		e := entries[i]
		switch e.Type {
		case stream.TypeNarrator:
			prefix := narratorStyle.Render(AgentName + ": ")
			content.WriteString(prefix + wordwrap.String(e.Content, width-len(AgentName)-2) + "\n\n")
		case stream.TypeDialogue:
			name := m.speakerName(e.SpeakerID)
			prefix := speakerStyle.Render(name + ": ")
			content.WriteString(prefix + wordwrap.String(e.Content, width-len(name)-2) + "\n\n")
		case stream.TypeThought:
			name := m.speakerName(e.SpeakerID)
			content.WriteString(thoughtStyle.Render(fmt.Sprintf("(%s thinks) ", name)) + wordwrap.String(e.Content, width) + "\n\n")
		case stream.TypeAction:
			content.WriteString(promptStyle.Render("* ") + wordwrap.String(e.Content, width-2) + "\n\n")
		case stream.TypePlayerChoice:
			m.writeChoice(content, e.Title)
		}
	}

	if !m.awaitingChoice && !m.busy {
		if m.exitable && !tl.CanAdvance() {
			content.WriteString(promptStyle.Render("Press Enter to return to the world.") + "\n")
		} else {
			content.WriteString(promptStyle.Render("Press Enter to continue.") + "\n")
		}
	}
}

func (m *ConsoleUI) writeChoice(content *strings.Builder, title string) {
	if title == "" {
		title = m.choiceTitle
	}
	if title == "" {
		title = "What do you do?"
	}
	content.WriteString(titleStyle.Render(title) + "\n\n")

	if !m.awaitingChoice {
		return
	}
	for i, opt := range m.choiceOptions {
		if i == m.selectedChoice {
			content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", opt.Label)))
		} else {
			content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", opt.Label)))
		}
		content.WriteString("\n")
	}
	content.WriteString("\n" + promptStyle.Render("Use ↑/↓ to choose, Enter to commit") + "\n")
}

func (m *ConsoleUI) writeMetadata() string {
	st := m.sess.World()
	var content strings.Builder
	content.WriteString(titleStyle.Render("WORLD STATE") + "\n\n")

	content.WriteString("Session:\n")
	content.WriteString(m.sess.ID.String()[:8] + "...\n\n")

	checkpoint := st.CheckpointID
	if checkpoint == "" {
		checkpoint = "none"
	} else if len(checkpoint) > 12 {
		checkpoint = checkpoint[:12] + "..."
	}
	content.WriteString("Checkpoint:\n")
	content.WriteString(checkpoint + "\n\n")

	if sc := m.currentScenario(); sc != nil {
		content.WriteString("Location:\n")
		name := sc.Name
		if name == "" {
			name = sc.ID
		}
		content.WriteString(name + "\n")
		if sc.IndoorOrOutdoor != "" {
			content.WriteString(promptStyle.Render(titleCaser.String(sc.IndoorOrOutdoor)) + "\n")
		}
		content.WriteString("\n")
	}

	if m.mode == modeEvent {
		content.WriteString("Event:\n")
		content.WriteString(m.sess.ActiveEventID() + "\n\n")
		content.WriteString("Commands:\n")
		content.WriteString("• Enter: Continue\n")
		content.WriteString("• C: Copy text\n")
		content.WriteString("• Ctrl+C: Quit\n")
		return content.String()
	}

	content.WriteString(fmt.Sprintf("Scenarios known: %d\n", len(st.AllScenarios())))
	if sc := m.currentScenario(); sc != nil {
		nearby := len(st.ScenariosWithinRadius(sc.ID, 2)) - 1
		content.WriteString(fmt.Sprintf("Within two hops: %d\n", nearby))
	}
	content.WriteString("\n")

	content.WriteString("Commands:\n")
	content.WriteString("• M: Travel\n")
	content.WriteString("• T: Interact\n")
	content.WriteString("• C: Copy text\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

func (m *ConsoleUI) buildTravelOptions() []travelOption {
	st := m.sess.World()
	sc := m.currentScenario()
	if sc == nil {
		return nil
	}

	directions := make([]string, 0, len(sc.ConnectionsByDirection))
	for d := range sc.ConnectionsByDirection {
		directions = append(directions, d)
	}
	sort.Strings(directions)

	var opts []travelOption
	for _, d := range directions {
		conn := st.Connection(sc.ConnectionsByDirection[d])
		if conn == nil {
			continue
		}
		destID := conn.OtherEndpoint(sc.ID)
		name := destID
		if dest := st.Scenario(destID); dest != nil && dest.Name != "" {
			name = dest.Name
		}
		opts = append(opts, travelOption{
			direction:    d,
			scenarioID:   destID,
			scenarioName: name,
			blocked:      conn.Blocked,
		})
	}
	return opts
}

func (m *ConsoleUI) buildActionOptions() []contextualChoice {
	st := m.sess.World()
	sc := m.currentScenario()
	if sc == nil {
		return nil
	}

	var out []contextualChoice
	for _, c := range st.ResidentCharacters(sc.ID) {
		for _, opt := range st.ContextualOptions(c.ID) {
			out = append(out, contextualChoice{characterID: c.ID, option: opt})
		}
	}
	return out
}

func (m ConsoleUI) updateTravelModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.showTravelModal = false
		return m, nil
	case tea.KeyUp:
		if m.selectedTravel > 0 {
			m.selectedTravel--
		}
	case tea.KeyDown:
		if m.selectedTravel < len(m.travelOptions)-1 {
			m.selectedTravel++
		}
	case tea.KeyEnter:
		opt := m.travelOptions[m.selectedTravel]
		m.showTravelModal = false
		if opt.blocked {
			m.statusLine = errorStyle.Render(fmt.Sprintf("The way %s is blocked.", opt.direction))
			m.refreshPanels()
			return m, nil
		}
		m.busy = true
		m.progressTick = 0
		m.statusLine = ""
		m.sess.Move(opt.scenarioID)
		m.refreshPanels()
		return m, progressTick()
	}
	return m, nil
}

func (m ConsoleUI) updateActionsModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.showActionsModal = false
		return m, nil
	case tea.KeyUp:
		if m.selectedAction > 0 {
			m.selectedAction--
		}
	case tea.KeyDown:
		if m.selectedAction < len(m.actionOptions)-1 {
			m.selectedAction++
		}
	case tea.KeyEnter:
		choice := m.actionOptions[m.selectedAction]
		m.showActionsModal = false
		m.busy = true
		m.progressTick = 0
		m.statusLine = ""
		m.sess.Trigger(choice.option.ConditionID)
		m.refreshPanels()
		return m, progressTick()
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case sessionTaskMsg:
		// Background completions keep landing while the modal is open.
		msg.fn()
		m.processNotices(m.bridge.drain())
		return m, waitForTask(m.sess)

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.refreshPanels()
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to quit your adventure?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderTravelModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Travel"))
	content.WriteString("\n\n")

	for i, opt := range m.travelOptions {
		label := fmt.Sprintf("%s: %s", titleCaser.String(opt.direction), opt.scenarioName)
		if opt.blocked {
			label += " (blocked)"
		}
		if i == m.selectedTravel {
			content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
		} else {
			content.WriteString(modalItemStyle.Render("  " + label))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to travel, Esc to cancel"))

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderActionsModal() string {
	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Interact"))
	content.WriteString("\n\n")

	for i, choice := range m.actionOptions {
		label := choice.option.MenuLabel
		if label == "" {
			label = choice.option.Title
		}
		label = fmt.Sprintf("%s: %s", m.speakerName(choice.characterID), label)
		if i == m.selectedAction {
			content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
		} else {
			content.WriteString(modalItemStyle.Render("  " + label))
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Esc to cancel"))

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showTravelModal {
		return m.renderTravelModal()
	}
	if m.showActionsModal {
		return m.renderActionsModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - storyWidth - 6

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.storyViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(storyWidth-4, 1))),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}

// copyStoryText copies the unstyled text of the visible pane.
func (m *ConsoleUI) copyStoryText() {
	var text string
	if m.mode == modeEvent {
		var b strings.Builder
		tl := m.sess.Timeline()
		entries := tl.Entries()
		for i := 0; i <= tl.CurrentIndex() && i < len(entries); i++ {
			e := entries[i]
			switch e.Type {
			case stream.TypeDialogue, stream.TypeThought:
				b.WriteString(m.speakerName(e.SpeakerID) + ": " + e.Content + "\n\n")
			case stream.TypePlayerChoice:
				b.WriteString(e.Title + "\n\n")
			default:
				b.WriteString(e.Content + "\n\n")
			}
		}
		text = b.String()
	} else if sc := m.currentScenario(); sc != nil {
		text = sc.Name + "\n\n" + sc.VisualDescription
	}

	if strings.TrimSpace(text) == "" {
		return
	}
	if err := clipboard.WriteAll(text); err != nil {
		m.statusLine = errorStyle.Render("Copy failed: " + err.Error())
		return
	}
	m.statusLine = loadingStyle.Render("Copied to clipboard.")
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.storyViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80 // avoid overly wide bars
	} else if usable < 10 {
		usable = 10 // minimum visible bar
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}
