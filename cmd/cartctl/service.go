package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/angelmondragon/grocerycart/internal/cart"
	"github.com/angelmondragon/grocerycart/internal/checkout"
	"github.com/angelmondragon/grocerycart/internal/orders"
	"github.com/angelmondragon/grocerycart/pkg/cartapi"
	"github.com/angelmondragon/grocerycart/pkg/config"
	"github.com/angelmondragon/grocerycart/pkg/credentials"
	"github.com/angelmondragon/grocerycart/pkg/enums"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/angelmondragon/grocerycart/pkg/logger"
	"github.com/angelmondragon/grocerycart/pkg/metrics"
	"github.com/angelmondragon/grocerycart/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

const usage = `usage: cartctl <command> [flags]

commands:
  login -email E -password P   sign in and cache the session
  logout                       forget the cached session
  whoami                       show the cached profile
  cart                         fetch and show the cart
  add|inc|dec PRODUCT VARIANT  change a cart line by one
  addresses                    list delivery addresses
  slots                        list delivery dates and slots
  checkout [flags]             place an order (see cartctl checkout -h)
  orders                       list past orders
  order ID                     show one order
`

type remote interface {
	cart.Remote
	checkout.Remote
	orders.Remote
	Login(ctx context.Context, email, password string) (*cartapi.Session, error)
}

type ServiceParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	Remote      remote
	Credentials credentials.Store
	Registry    *prometheus.Registry
	Out         io.Writer
	Now         func() time.Time
}

type Service struct {
	cfg      *config.Config
	logg     *logger.Logger
	remote   remote
	creds    credentials.Store
	registry *prometheus.Registry
	out      io.Writer
	now      func() time.Time
	loc      *time.Location

	engine          *cart.Engine
	orders          *orders.Service
	checkoutMetrics *metrics.CheckoutMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if params.Remote == nil {
		return nil, fmt.Errorf("remote required")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credentials store required")
	}
	if params.Logger == nil {
		params.Logger = logger.Nop()
	}
	if params.Out == nil {
		params.Out = io.Discard
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	loc, err := params.Config.Checkout.Location()
	if err != nil {
		return nil, err
	}
	policy, err := enums.ParseSequencingPolicy(params.Config.Cart.Sequencing)
	if err != nil {
		return nil, err
	}

	var reg prometheus.Registerer
	if params.Registry != nil {
		reg = params.Registry
	}
	namespace := params.Config.Metrics.Namespace

	engine, err := cart.NewEngine(cart.NewStore(), params.Remote, cart.EngineOptions{
		Policy:  policy,
		Logger:  params.Logger,
		Metrics: metrics.NewSyncMetrics(reg, namespace),
	})
	if err != nil {
		return nil, err
	}
	orderSvc, err := orders.NewService(params.Remote, params.Logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:             params.Config,
		logg:            params.Logger,
		remote:          params.Remote,
		creds:           params.Credentials,
		registry:        params.Registry,
		out:             params.Out,
		now:             params.Now,
		loc:             loc,
		engine:          engine,
		orders:          orderSvc,
		checkoutMetrics: metrics.NewCheckoutMetrics(reg, namespace),
	}, nil
}

// Run dispatches one command line.
func (s *Service) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(s.out, usage)
		return pkgerrors.New(pkgerrors.CodeValidation, "command required")
	}
	cmd, rest := args[0], args[1:]
	ctx = s.logg.WithField(ctx, "command", cmd)

	switch cmd {
	case "login":
		return s.login(ctx, rest)
	case "logout":
		return s.logout(ctx)
	case "whoami":
		return s.whoami(ctx)
	case "cart":
		return s.showCart(ctx)
	case "add", "inc", "dec":
		return s.changeLine(ctx, cmd, rest)
	case "addresses":
		return s.addresses(ctx)
	case "slots":
		return s.slots(ctx)
	case "checkout":
		return s.checkout(ctx, rest)
	case "orders":
		return s.listOrders(ctx)
	case "order":
		return s.showOrder(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(s.out, usage)
		return nil
	}
	fmt.Fprint(s.out, usage)
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown command %q", cmd))
}

func (s *Service) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(s.out)
	return fs
}

func (s *Service) token(ctx context.Context) (string, error) {
	token, err := credentials.Token(ctx, s.creds)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "not logged in")
	}
	return token, nil
}

func (s *Service) login(ctx context.Context, args []string) error {
	fs := s.flagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid flags")
	}

	session, err := s.remote.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := credentials.SaveSession(ctx, s.creds, session.Token, session.Profile); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithCustomerID(ctx, strconv.FormatInt(session.Profile.ID, 10)), "session saved")
	fmt.Fprintf(s.out, "logged in as %s (wallet %s)\n", session.Profile.Email, session.Profile.Wallet.StringFixed(2))
	return nil
}

func (s *Service) logout(ctx context.Context) error {
	if err := credentials.ClearSession(ctx, s.creds); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "logged out")
	return nil
}

func (s *Service) whoami(ctx context.Context) error {
	profile, err := credentials.Profile(ctx, s.creds)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "not logged in")
	}
	fmt.Fprintf(s.out, "%s <%s> wallet %s\n", profile.Name, profile.Email, profile.Wallet.StringFixed(2))
	return nil
}

func (s *Service) showCart(ctx context.Context) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}
	state, err := s.engine.FetchCart(ctx, token)
	if err != nil {
		return err
	}
	s.printCart(state)
	return nil
}

func (s *Service) changeLine(ctx context.Context, cmd string, args []string) error {
	if len(args) != 2 {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("usage: cartctl %s PRODUCT VARIANT", cmd))
	}
	productID, err1 := strconv.ParseInt(args[0], 10, 64)
	variantID, err2 := strconv.ParseInt(args[1], 10, 64)
	if err1 != nil || err2 != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product and variant must be numbers")
	}
	token, err := s.token(ctx)
	if err != nil {
		return err
	}

	var result cart.Result
	switch cmd {
	case "add":
		result, err = s.engine.AddToCart(ctx, productID, variantID, token)
	case "inc":
		result, err = s.engine.IncrementCart(ctx, productID, variantID, token)
	default:
		result, err = s.engine.DecrementCart(ctx, productID, variantID, token)
	}
	if err != nil {
		return err
	}

	if result.Quantity == 0 {
		fmt.Fprintf(s.out, "removed %s\n", result.Key)
	} else {
		fmt.Fprintf(s.out, "%s quantity %d\n", result.Key, result.Quantity)
	}
	s.printTotals(s.engine.Store().Totals())
	return nil
}

func (s *Service) newOrchestrator() (*checkout.Orchestrator, error) {
	deliveryType, err := enums.ParseDeliveryType(s.cfg.Checkout.DeliveryType)
	if err != nil {
		return nil, err
	}
	return checkout.NewOrchestrator(s.remote, s.engine.Store(), s.creds, checkout.Options{
		DeliveryType:   deliveryType,
		DeliveryIn:     s.cfg.Checkout.DeliveryIn,
		DateWindowDays: s.cfg.Checkout.DateWindowDays,
		Location:       s.loc,
		Now:            s.now,
		Logger:         s.logg,
		Metrics:        s.checkoutMetrics,
	})
}

func (s *Service) addresses(ctx context.Context) error {
	orch, err := s.newOrchestrator()
	if err != nil {
		return err
	}
	addresses, err := orch.LoadAddresses(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for i, a := range addresses {
		marker := " "
		if a.Selected {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s %d\t%s\t%s\n", marker, i+1, a.Label, a.DisplayLine())
	}
	return tw.Flush()
}

func (s *Service) slots(ctx context.Context) error {
	orch, err := s.newOrchestrator()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, date := range orch.Dates() {
		open := []string{}
		for _, slot := range orch.Slots(date) {
			if slot.Available {
				open = append(open, slot.Value)
			}
		}
		if len(open) == 0 {
			open = append(open, "(none)")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", date, date.Label(), strings.Join(open, " "))
	}
	return tw.Flush()
}

func (s *Service) checkout(ctx context.Context, args []string) error {
	fs := s.flagSet("checkout")
	address := fs.Int("address", 0, "address number from `cartctl addresses` (default: the default address)")
	date := fs.String("date", "", "delivery date YYYY-MM-DD (default: first date with an open slot)")
	slot := fs.String("slot", "", "delivery slot: morning|afternoon|evening|night (default: first open)")
	useWallet := fs.Bool("wallet", false, "pay from the wallet first")
	holder := fs.String("card-holder", "", "card holder name")
	number := fs.String("card-number", "", "card number")
	month := fs.String("card-month", "", "card expiry month")
	year := fs.String("card-year", "", "card expiry year")
	cvv := fs.String("cvv", "", "card cvv")
	tip := fs.String("tip", "", "optional tip amount")
	instruction := fs.String("instruction", "", "delivery instruction")
	note := fs.String("note", "", "delivery note")
	if err := fs.Parse(args); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid flags")
	}

	token, err := s.token(ctx)
	if err != nil {
		return err
	}
	state, err := s.engine.FetchCart(ctx, token)
	if err != nil {
		return err
	}
	if len(state.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	orch, err := s.newOrchestrator()
	if err != nil {
		return err
	}
	if _, err := orch.LoadAddresses(ctx); err != nil {
		return err
	}
	if *address > 0 {
		if err := orch.SelectAddress(*address - 1); err != nil {
			return err
		}
	}

	if err := s.selectDelivery(orch, *date, *slot); err != nil {
		return err
	}

	if err := orch.SetUseWallet(*useWallet); err != nil {
		return err
	}
	if err := orch.SetCardDetails(types.CardDetails{
		Holder:      *holder,
		Number:      *number,
		ExpiryMonth: *month,
		ExpiryYear:  *year,
		CVV:         *cvv,
	}); err != nil {
		return err
	}
	extras := checkout.Extras{Instruction: *instruction, Note: *note}
	if strings.TrimSpace(*tip) != "" {
		amount, err := decimal.NewFromString(strings.TrimSpace(*tip))
		if err != nil || amount.IsNegative() {
			return pkgerrors.Validation(checkout.SectionPayment, "tip must be a positive amount")
		}
		extras.Tip = &amount
	}
	if err := orch.SetExtras(extras); err != nil {
		return err
	}

	sel := orch.Selection(ctx)
	fmt.Fprintf(s.out, "paying %s via %s\n", state.Totals.PayableAmount.StringFixed(2), sel.PaymentMode)

	orderID, err := orch.Submit(ctx)
	if err != nil {
		if reason := orch.FailureReason(); reason != "" {
			fmt.Fprintf(s.out, "checkout failed: %s\n", reason)
		}
		return err
	}
	fmt.Fprintf(s.out, "order %d placed\n", orderID)

	if _, err := s.engine.FetchCart(ctx, token); err != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, orderID), "cart refresh after checkout failed")
	}
	return nil
}

// selectDelivery picks the requested date and slot, or the first open ones.
func (s *Service) selectDelivery(orch *checkout.Orchestrator, rawDate, slot string) error {
	if rawDate != "" {
		date, err := types.ParseDate(rawDate)
		if err != nil {
			return pkgerrors.Validation(checkout.SectionDate, "delivery date must be YYYY-MM-DD")
		}
		if err := orch.SelectDate(date); err != nil {
			return err
		}
	} else {
		var lastErr error
		picked := false
		for _, date := range orch.Dates() {
			if lastErr = orch.SelectDate(date); lastErr == nil {
				picked = true
				break
			}
		}
		if !picked {
			return lastErr
		}
	}
	if slot != "" {
		return orch.SelectSlot(slot)
	}
	return nil
}

func (s *Service) listOrders(ctx context.Context) error {
	token, err := s.token(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "please log in to view your orders")
	}
	list, err := s.orders.List(ctx, token)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(s.out, "no orders yet")
		return nil
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, o := range list {
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%d items\t%s\n",
			o.ID, o.CreatedAt.In(s.loc).Format("2006-01-02 15:04"), o.Status, orders.ItemCount(o), o.PayableAmount.StringFixed(2))
	}
	return tw.Flush()
}

func (s *Service) showOrder(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "usage: cartctl order ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id must be a number")
	}
	token, err := s.token(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "please log in to view your orders")
	}
	order, err := s.orders.Get(ctx, token, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "order #%d  %s  %s/%s\n", order.ID, order.Status, order.PaymentMethod, order.PaymentStatus)
	if order.Address != nil {
		fmt.Fprintf(s.out, "deliver to %s\n", order.Address.DisplayLine())
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, item := range order.Items {
		fmt.Fprintf(tw, "  %s\t%d x %s\t%s\n", item.Product.Name, item.Quantity, item.SalePrice.StringFixed(2), orders.ItemTotal(item).StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "payable %s\n", order.PayableAmount.StringFixed(2))
	return nil
}

func (s *Service) printCart(state types.CartState) {
	if len(state.Lines) == 0 {
		fmt.Fprintln(s.out, "cart is empty")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, line := range state.Lines {
		price := "-"
		if line.UnitPrice != nil {
			price = line.UnitPrice.StringFixed(2)
		}
		fmt.Fprintf(tw, "%d/%d\t%s %s\tx%d\t%s\n", line.ProductID, line.VariantID, line.ProductName, line.VariantName, line.Quantity, price)
	}
	_ = tw.Flush()
	s.printTotals(state.Totals)
}

func (s *Service) printTotals(t types.CartTotals) {
	fmt.Fprintf(s.out, "subtotal %s  discount %s  tax %s  payable %s\n",
		t.SubTotal.StringFixed(2), t.Discount.StringFixed(2), t.Tax.StringFixed(2), t.PayableAmount.StringFixed(2))
}

// WriteMetrics prints every counter and histogram sample gathered this run.
func (s *Service) WriteMetrics(w io.Writer) error {
	if s.registry == nil {
		return nil
	}
	families, err := s.registry.Gather()
	if err != nil {
		return err
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(w, "%s%s %s\n", mf.GetName(), formatLabels(m.GetLabel()), formatSample(mf.GetType(), m))
		}
	}
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatSample(kind dto.MetricType, m *dto.Metric) string {
	switch kind {
	case dto.MetricType_COUNTER:
		return strconv.FormatFloat(m.GetCounter().GetValue(), 'f', -1, 64)
	case dto.MetricType_GAUGE:
		return strconv.FormatFloat(m.GetGauge().GetValue(), 'f', -1, 64)
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%s", h.GetSampleCount(), strconv.FormatFloat(h.GetSampleSum(), 'f', 4, 64))
	}
	return "-"
}

// describeError renders a failure the way its presentation asks for.
func describeError(err error) string {
	msg := pkgerrors.UserMessage(err)
	switch pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).Presentation {
	case pkgerrors.PresentInline:
		if section := pkgerrors.Section(err); section != "" {
			return fmt.Sprintf("%s: %s", section, msg)
		}
		return msg
	case pkgerrors.PresentRedirect:
		return "please log in again: cartctl login -email you@example.com -password ..."
	}
	if pkgerrors.MetadataFor(pkgerrors.CodeOf(err)).Retryable {
		return fmt.Sprintf("error: %s (try again)", msg)
	}
	return "error: " + msg
}
