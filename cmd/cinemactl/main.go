// Command cinemactl drives the cinema API from a terminal: browse the
// catalog, book seats, return tickets and schedule showtimes.
//
//	cinemactl [-token T] <command> [flags]
//
// The access token can also come from CINEMA_TOKEN; `login` prints one.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/iliyamo/cinema-ticketing/internal/catalog"
	"github.com/iliyamo/cinema-ticketing/internal/client"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/pricing"
	"github.com/iliyamo/cinema-ticketing/internal/scheduling"
)

var (
	ok   = color.New(color.FgGreen).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
	bad  = color.New(color.FgRed).SprintFunc()
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("env: .env not loaded: %v", err)
	}
	token := flag.String("token", os.Getenv("CINEMA_TOKEN"), "access token")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg := client.LoadConfig()
	api, err := client.New(cfg.BaseURL(), cfg.Timeout, log.New(os.Stderr, "", log.LstdFlags))
	if err != nil {
		log.Fatal(err)
	}
	api.SetToken(*token)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "login":
		err = login(ctx, api, args)
	case "whoami":
		err = whoami(api)
	case "movies":
		err = movies(ctx, api, args)
	case "book":
		err = book(ctx, api, args)
	case "return":
		err = returnTicket(ctx, api, args)
	case "schedule":
		err = schedule(ctx, api, args)
	case "unschedule":
		err = unschedule(ctx, api, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, bad(describe(err)))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: cinemactl [-token T] <command> [flags]

commands:
  login       -email E -password P
  whoami
  movies      [-title T] [-genres a,b] [-date YYYY-MM-DD]
  book        -showtime ID -seats A1,A2 [-adult N] [-child N] [-senior N] [-card ID] [-promo CODE] [-zip ZIP]
              [-card-number N -exp MM/YYYY -cvv CVV -billing-name NAME
               -billing-street S -billing-city C -billing-state ST -billing-zip ZIP]
  return      -ticket NUMBER
  schedule    -room ID -movie ID -start RFC3339 [-buffer 5h]
  unschedule  -room ID -movie ID -start RFC3339`)
}

// describe turns workflow errors into the message shown to the user.
func describe(err error) string {
	switch {
	case client.IsUnauthorized(err):
		return "please sign in (cinemactl login) and pass the token"
	case errors.Is(err, context.DeadlineExceeded):
		return "the server did not answer in time"
	}
	return err.Error()
}

func login(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)

	s, err := api.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("%s signed in as %s (%s)\n", ok("ok"), s.User.Name, s.User.Role)
	fmt.Printf("export CINEMA_TOKEN=%s\n", s.Access.Token)
	return nil
}

func whoami(api *client.Client) error {
	if !api.Authenticated() {
		return client.ErrNotAuthenticated
	}
	id, err := client.DisplayClaims(api.Token())
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s> id=%d role=%s expires=%s\n", id.Name, id.Email, id.UserID, id.Role, id.Expires.Format(time.RFC3339))
	return nil
}

func movies(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("movies", flag.ExitOnError)
	title := fs.String("title", "", "title substring")
	genres := fs.String("genres", "", "comma separated genre fragments")
	date := fs.String("date", "", "only movies showing on YYYY-MM-DD")
	policy := fs.String("policy", "scheduled", "scheduled or by_date")
	_ = fs.Parse(args)

	q := client.Query{Title: *title, Genres: catalog.ParseGenres(*genres)}
	if *date != "" {
		d, err := time.ParseInLocation("2006-01-02", *date, time.Local)
		if err != nil {
			return errors.New("date must be YYYY-MM-DD")
		}
		q.Date = d
	}
	l, err := client.NewBrowser(api, catalog.ParsePolicy(*policy)).Browse(ctx, q)
	if err != nil {
		return err
	}
	printMovies("Now showing", l.NowShowing)
	printMovies("Upcoming", l.Upcoming)
	return nil
}

func printMovies(heading string, ms []model.Movie) {
	fmt.Println(color.New(color.Bold).Sprint(heading))
	if len(ms) == 0 {
		fmt.Println("  (none)")
	}
	for _, m := range ms {
		fmt.Printf("  %4d  %-40s %-6s %s\n", m.ID, m.Title, m.Rating, strings.Join(m.Genres, ", "))
	}
}

func book(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("book", flag.ExitOnError)
	showtime := fs.Uint64("showtime", 0, "showtime id")
	seats := fs.String("seats", "", "comma separated seat codes")
	adult := fs.Int("adult", 0, "adult tickets")
	child := fs.Int("child", 0, "child tickets")
	senior := fs.Int("senior", 0, "senior tickets")
	card := fs.Uint64("card", 0, "saved card id")
	promo := fs.String("promo", "", "promo code")
	zip := fs.String("zip", "", "ZIP for sales tax")
	cf := newCardFlags(fs)
	_ = fs.Parse(args)
	newCard, useNew, err := cf.card()
	if err != nil {
		return err
	}

	co, err := client.NewCheckout(ctx, api, *showtime, model.TicketCounts{Adult: *adult, Child: *child, Senior: *senior})
	if err != nil {
		return err
	}
	for _, s := range strings.Split(*seats, ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		if err := co.SelectSeat(s); err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
	}
	if n := co.Selection().Remaining(); n > 0 {
		fmt.Println(warn(fmt.Sprintf("pick %d more seat(s) to match your tickets", n)))
	}
	switch {
	case useNew:
		co.UseNewCard(newCard)
	case *card != 0:
		if err := co.SelectCard(*card); err != nil {
			return err
		}
	case len(co.Cards()) == 1:
		_ = co.SelectCard(co.Cards()[0].ID)
	}
	if *promo != "" {
		if err := co.ApplyPromo(ctx, *promo); err != nil {
			fmt.Println(warn(err.Error()))
		}
	}
	co.SetZip(*zip)
	if err := co.Validate(); err != nil {
		return err
	}
	if err := co.RefreshTax(ctx); err != nil {
		fmt.Println(warn("tax unavailable: " + err.Error()))
	}
	totals, err := co.Totals()
	if err != nil {
		return err
	}
	printTotals(totals.Rounded())

	t, err := co.Submit(ctx)
	if err != nil {
		if client.IsConflict(err) {
			fmt.Println(warn("still available from your pick: " + strings.Join(co.Selection().Selected(), ",")))
		}
		return err
	}
	fmt.Printf("%s ticket %s for %s, seats %s, total %.2f\n",
		ok("booked"), t.TicketNumber, t.MovieTitle, strings.Join(t.Seats, ","), t.Total)
	return nil
}

// cardFlags collect an inline card for users paying without a saved one.
type cardFlags struct {
	number, exp, cvv                   *string
	name, street, city, state, zipCode *string
}

func newCardFlags(fs *flag.FlagSet) cardFlags {
	return cardFlags{
		number:  fs.String("card-number", "", "new card number"),
		exp:     fs.String("exp", "", "new card expiry, MM/YYYY"),
		cvv:     fs.String("cvv", "", "new card CVV"),
		name:    fs.String("billing-name", "", "name on the new card"),
		street:  fs.String("billing-street", "", "billing street"),
		city:    fs.String("billing-city", "", "billing city"),
		state:   fs.String("billing-state", "", "billing state"),
		zipCode: fs.String("billing-zip", "", "billing ZIP"),
	}
}

// card returns the inline card; ok is false when no card number was given.
func (f cardFlags) card() (nc client.NewCard, ok bool, err error) {
	if strings.TrimSpace(*f.number) == "" {
		return client.NewCard{}, false, nil
	}
	month, year, err := parseExpiry(*f.exp)
	if err != nil {
		return client.NewCard{}, false, err
	}
	return client.NewCard{
		Number:      strings.TrimSpace(*f.number),
		ExpMonth:    month,
		ExpYear:     year,
		CVV:         strings.TrimSpace(*f.cvv),
		BillingName: strings.TrimSpace(*f.name),
		BillingAddress: model.Address{
			Street: strings.TrimSpace(*f.street),
			City:   strings.TrimSpace(*f.city),
			State:  strings.TrimSpace(*f.state),
			Zip:    strings.TrimSpace(*f.zipCode),
		},
	}, true, nil
}

// parseExpiry accepts MM/YYYY or MM/YY.
func parseExpiry(raw string) (month, year int, err error) {
	m, y, found := strings.Cut(strings.TrimSpace(raw), "/")
	if !found {
		return 0, 0, errors.New("exp must be MM/YYYY")
	}
	month, err = strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return 0, 0, errors.New("exp month must be 01-12")
	}
	year, err = strconv.Atoi(y)
	if err != nil {
		return 0, 0, errors.New("exp year must be a number")
	}
	if len(y) == 2 {
		year += 2000
	}
	return month, year, nil
}

func printTotals(b pricing.Breakdown) {
	fmt.Printf("  subtotal  %8.2f\n", b.Subtotal)
	if b.DiscountPercent > 0 {
		fmt.Printf("  promo     %8.2f (-%g%%)\n", -b.Discount, b.DiscountPercent)
	}
	fmt.Printf("  tax       %8.2f (%.2f%%)\n", b.Tax, b.TaxRate*100)
	fmt.Printf("  total     %8.2f\n", b.Total)
}

func returnTicket(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("return", flag.ExitOnError)
	number := fs.String("ticket", "", "ticket number")
	_ = fs.Parse(args)

	r, err := api.ReturnTicket(ctx, *number)
	if err != nil {
		return err
	}
	refund := warn("no refund")
	if r.RefundEligible {
		refund = ok("refund issued")
	}
	fmt.Printf("%s, %s (%d minutes before the show)\n", r.Message, refund, r.MinutesUntilShow)
	return nil
}

type showtimeFlags struct {
	room, movie *uint64
	start       *string
}

func newShowtimeFlags(fs *flag.FlagSet) showtimeFlags {
	return showtimeFlags{
		room:  fs.Uint64("room", 0, "showroom id"),
		movie: fs.Uint64("movie", 0, "movie id"),
		start: fs.String("start", "", "start time, RFC 3339"),
	}
}

func (f showtimeFlags) startTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, *f.start)
	if err != nil {
		return time.Time{}, errors.New("start must be RFC 3339, e.g. 2030-03-10T19:30:00Z")
	}
	return t, nil
}

func schedule(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ExitOnError)
	sf := newShowtimeFlags(fs)
	buffer := fs.Duration("buffer", scheduling.DefaultBuffer, "minimum gap between starts")
	_ = fs.Parse(args)
	start, err := sf.startTime()
	if err != nil {
		return err
	}

	s := client.NewScheduler(api, scheduling.NewPolicy(*buffer))
	if err := s.Load(ctx); err != nil {
		return err
	}
	if err := s.SelectShowroom(*sf.room); err != nil {
		return err
	}
	if err := s.SelectMovie(*sf.movie); err != nil {
		return err
	}
	if err := s.SelectTime(start); err != nil {
		return err
	}
	st, err := s.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s showtime %d in showroom %d at %s\n", ok("scheduled"), st.ID, st.ShowroomID, st.Start.Format(time.RFC3339))
	return nil
}

func unschedule(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("unschedule", flag.ExitOnError)
	sf := newShowtimeFlags(fs)
	_ = fs.Parse(args)
	start, err := sf.startTime()
	if err != nil {
		return err
	}
	if err := api.RemoveShowtime(ctx, *sf.room, *sf.movie, start); err != nil {
		return err
	}
	fmt.Println(ok("removed"))
	return nil
}
