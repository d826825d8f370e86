package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/client"

	"temporal-fiscal-request/display"
	"temporal-fiscal-request/shared"
)

const (
	settleInterval = 300 * time.Millisecond
	settleTimeout  = 15 * time.Second

	// maxXMLSize keeps the upload signal under the server's payload limit.
	maxXMLSize = 1536 << 10
)

var errQuit = errors.New("quit")

// console drives one session from a terminal: it renders the queried state
// and turns menu choices into signals.
type console struct {
	c          client.Client
	workflowID string
	in         *bufio.Reader
	out        io.Writer
}

func newConsole(c client.Client, workflowID string, in io.Reader, out io.Writer) *console {
	return &console{c: c, workflowID: workflowID, in: bufio.NewReader(in), out: out}
}

func querySession(ctx context.Context, c client.Client, workflowID string) (shared.SessionState, error) {
	resp, err := c.QueryWorkflow(ctx, workflowID, "", shared.QuerySessionState)
	if err != nil {
		return shared.SessionState{}, fmt.Errorf("query failed: %w", err)
	}
	var state shared.SessionState
	if err := resp.Get(&state); err != nil {
		return shared.SessionState{}, fmt.Errorf("failed to decode session state: %w", err)
	}
	return state, nil
}

func (k *console) run(ctx context.Context) error {
	for {
		state, err := k.settle(ctx)
		if err != nil {
			return err
		}
		if state.Closed {
			fmt.Fprintln(k.out, "\n🏁 Sessão encerrada.")
			return nil
		}

		k.render(state)
		if err := k.prompt(ctx, state); err != nil {
			if errors.Is(err, errQuit) {
				fmt.Fprintln(k.out, "\n👋 Saindo. A sessão continua no Temporal; use 'attach' para voltar.")
				return nil
			}
			return err
		}
	}
}

// settle queries until no gateway call of the visible step is in flight, or
// gives up after settleTimeout and shows whatever is there.
func (k *console) settle(ctx context.Context) (shared.SessionState, error) {
	deadline := time.Now().Add(settleTimeout)
	for {
		state, err := querySession(ctx, k.c, k.workflowID)
		if err != nil {
			return state, err
		}
		if !busy(state) || time.Now().After(deadline) {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-time.After(settleInterval):
		}
	}
}

func busy(s shared.SessionState) bool {
	switch s.CurrentStep {
	case shared.StepUploadXML:
		return s.Upload.Loading
	case shared.StepOrderData:
		return s.Order.Loading
	case shared.StepRequestResult:
		return s.Request.Loading
	case shared.StepFinalResult:
		return s.Result.Loading
	}
	return false
}

func (k *console) render(s shared.SessionState) {
	fmt.Fprintln(k.out)
	fmt.Fprintln(k.out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintln(k.out, "  Solicitação de Reembolso Fiscal")
	fmt.Fprintln(k.out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprint(k.out, display.RenderStepper(s.Steps, s.CurrentStep))
	fmt.Fprintln(k.out)

	switch s.CurrentStep {
	case shared.StepUploadXML:
		if s.FileName != "" {
			fmt.Fprintf(k.out, "Último arquivo: %s\n", s.FileName)
		}
		if s.Upload.ErrorDialog != "" {
			fmt.Fprintf(k.out, "❌ %s\n", s.Upload.ErrorDialog)
		}
	case shared.StepReviewXML:
		display.WriteXMLData(k.out, s.XMLData)
	case shared.StepOrderData:
		display.WriteOrderForm(k.out, s.Order.Form)
		if s.Order.DivergenceDialogOpen {
			fmt.Fprintln(k.out, "\n⚠️  Divergências entre o formulário e o XML:")
			for _, d := range s.Order.Divergences {
				fmt.Fprintf(k.out, "   • %s\n", d)
			}
		}
		if s.Order.SendingIndicator {
			fmt.Fprintln(k.out, "📨 Enviando pedido de revisão...")
		}
		if s.Order.ErrorDialogOpen {
			fmt.Fprintln(k.out, "\n❌ Não foi possível enviar a solicitação:")
			for _, e := range s.Order.Errors {
				fmt.Fprintf(k.out, "   • %s\n", e)
			}
		}
	case shared.StepRequestResult:
		display.WriteRequestDetail(k.out, s.RequestDetail)
		if s.Request.Error != "" {
			fmt.Fprintf(k.out, "❌ %s\n", s.Request.Error)
		}
	case shared.StepFinalResult:
		display.WriteRequestDetail(k.out, s.RequestDetail)
		display.WriteFiscalProcess(k.out, s.FiscalProcess, s.Result.LoadingProcess)
		fmt.Fprintf(k.out, "Acompanhamento: %s (%d consultas)\n", s.Result.PollState, s.Result.Attempts)
		if s.Result.Error != "" {
			fmt.Fprintf(k.out, "❌ %s\n", s.Result.Error)
		}
	}

	if s.ConfirmCancelOpen {
		fmt.Fprintln(k.out, "\n❓ Cancelar a solicitação? Todos os dados serão descartados.")
	}
}

type menuItem struct {
	key   string
	label string
	run   func(ctx context.Context) error
}

func (k *console) menu(s shared.SessionState) []menuItem {
	signal := func(name string) func(context.Context) error {
		return func(ctx context.Context) error { return k.signal(ctx, name, nil) }
	}

	if s.ConfirmCancelOpen {
		return []menuItem{
			{"s", "Sim, cancelar", signal(shared.SignalConfirmCancel)},
			{"n", "Não, voltar", signal(shared.SignalDismissCancel)},
		}
	}

	var items []menuItem
	switch s.CurrentStep {
	case shared.StepUploadXML:
		items = append(items, menuItem{"1", "Enviar arquivo XML", k.uploadXML})
		if s.Upload.ErrorDialog != "" {
			items = append(items, menuItem{"d", "Fechar aviso", signal(shared.SignalDismissError)})
		}
	case shared.StepReviewXML:
		items = append(items,
			menuItem{"1", "Aprovar e continuar", signal(shared.SignalApproveXML)},
			menuItem{"c", "Cancelar", signal(shared.SignalCancel)},
		)
	case shared.StepOrderData:
		switch {
		case s.Order.DivergenceDialogOpen:
			items = append(items,
				menuItem{"f", "Corrigir dados", signal(shared.SignalFixDivergences)},
				menuItem{"r", "Solicitar revisão", signal(shared.SignalRequestReview)},
			)
		case s.Order.ErrorDialogOpen:
			items = append(items, menuItem{"d", "Fechar aviso", signal(shared.SignalDismissError)})
		default:
			items = append(items,
				menuItem{"e", "Editar campo", func(ctx context.Context) error { return k.editField(ctx, s.Order.Form) }},
				menuItem{"v", "Validar e enviar", signal(shared.SignalValidateOrder)},
				menuItem{"c", "Cancelar", signal(shared.SignalCancel)},
			)
		}
	case shared.StepRequestResult:
		items = append(items, menuItem{"r", "Consultar novamente", signal(shared.SignalRetryRequest)})
		if s.Request.CanAdvance {
			items = append(items, menuItem{"n", "Próximo", signal(shared.SignalNextStep)})
		}
	case shared.StepFinalResult:
		items = append(items,
			menuItem{"a", "Atualizar", signal(shared.SignalRefreshResult)},
			menuItem{"c", "Corrigir pedido", signal(shared.SignalCorrectOrder)},
			menuItem{"n", "Nova solicitação", signal(shared.SignalRestart)},
		)
	}

	return append(items,
		menuItem{"x", "Encerrar sessão", signal(shared.SignalCloseSession)},
		menuItem{"q", "Sair (a sessão continua)", func(context.Context) error { return errQuit }},
	)
}

func (k *console) prompt(ctx context.Context, s shared.SessionState) error {
	items := k.menu(s)
	fmt.Fprintln(k.out)
	for _, it := range items {
		fmt.Fprintf(k.out, "  [%s] %s\n", it.key, it.label)
	}
	fmt.Fprintln(k.out, "  [enter] Atualizar tela")
	fmt.Fprint(k.out, "\nEscolha: ")

	choice, err := k.readLine()
	if err != nil {
		return err
	}
	if choice == "" {
		return nil
	}
	for _, it := range items {
		if strings.EqualFold(choice, it.key) {
			return it.run(ctx)
		}
	}
	fmt.Fprintln(k.out, "❌ Opção inválida.")
	return nil
}

func (k *console) readLine() (string, error) {
	line, err := k.in.ReadString('\n')
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && line != "":
	case errors.Is(err, io.EOF):
		return "", errQuit
	default:
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (k *console) signal(ctx context.Context, name string, arg interface{}) error {
	if err := k.c.SignalWorkflow(ctx, k.workflowID, "", name, arg); err != nil {
		return fmt.Errorf("unable to signal session: %w", err)
	}
	return nil
}

func (k *console) uploadXML(ctx context.Context) error {
	fmt.Fprint(k.out, "Caminho do arquivo XML: ")
	path, err := k.readLine()
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(k.out, "❌ Não foi possível ler o arquivo: %v\n", err)
		return nil
	}
	if info.Size() > maxXMLSize {
		fmt.Fprintf(k.out, "❌ Arquivo muito grande (%d KB). O limite é %d KB.\n", info.Size()>>10, maxXMLSize>>10)
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(k.out, "❌ Não foi possível ler o arquivo: %v\n", err)
		return nil
	}
	fmt.Fprintf(k.out, "📤 Enviando %s...\n", filepath.Base(path))
	return k.signal(ctx, shared.SignalUploadXML, shared.UploadXMLInput{
		FileName: filepath.Base(path),
		Content:  content,
	})
}

// editField changes one field on a copy of the form and sends the whole form.
func (k *console) editField(ctx context.Context, form shared.OrderForm) error {
	fmt.Fprintf(k.out, "Campo (1-%d): ", len(display.OrderFormFields))
	line, err := k.readLine()
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(display.OrderFormFields) {
		fmt.Fprintln(k.out, "❌ Campo inválido.")
		return nil
	}
	field := display.OrderFormFields[n-1]

	fmt.Fprintf(k.out, "%s [%s]: ", field.Label, field.Get(form))
	value, err := k.readLine()
	if err != nil {
		return err
	}
	if err := field.Set(&form, value); err != nil {
		fmt.Fprintf(k.out, "❌ %v\n", err)
		return nil
	}
	return k.signal(ctx, shared.SignalUpdateOrderForm, form)
}
