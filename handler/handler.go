package handler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/YeongJV/Laundry-Locker-Service-System/internal/engine"
	"github.com/YeongJV/Laundry-Locker-Service-System/types"
)

// Engine is the slice of the allocation engine the console front end drives.
// The handler only collects input and renders output; every decision belongs
// to the engine.
type Engine interface {
	DropOff(phone string, kind types.ServiceType) (engine.DropOffTicket, error)
	OpenForDropoff(lockerID, code string) (time.Time, error)
	QuotePickup(lockerID, code string) (engine.Quote, error)
	PayAndPickup(lockerID, code string) (engine.Receipt, error)

	Login(candidate string) error
	Logout()
	AdminUnlock(lockerID string) error
	AdminSetMaintenance(lockerID string, under bool) error
	AdminLockerStatus() ([]engine.LockerDetail, error)
	AdminListReservations() ([]types.Reservation, error)
	TotalRevenue() (decimal.Decimal, error)
}

type Handler struct {
	engine Engine
	in     *bufio.Scanner
	out    io.Writer
}

func New(eng Engine, in io.Reader, out io.Writer) *Handler {
	return &Handler{engine: eng, in: bufio.NewScanner(in), out: out}
}

// Run drives the interactive session until the operator exits or input ends.
func (h *Handler) Run() {
	fmt.Fprintln(h.out, "===== Laundry Locker Service System =====")
	fmt.Fprintln(h.out, "Reserve locker space for drop-off & pick-up")
	for {
		fmt.Fprintln(h.out, "\nSelect role:")
		fmt.Fprintln(h.out, "1) Customer")
		fmt.Fprintln(h.out, "2) Admin")
		fmt.Fprintln(h.out, "3) Exit")
		switch h.ask("Choose: ") {
		case "1":
			h.customerMenu()
		case "2":
			h.adminLogin()
		case "3", "":
			fmt.Fprintln(h.out, "Goodbye!")
			return
		default:
			fmt.Fprintln(h.out, "Invalid choice.")
		}
	}
}

func (h *Handler) customerMenu() {
	for {
		fmt.Fprintln(h.out, "\n-- Customer Menu --")
		fmt.Fprintln(h.out, "1) Reserve Locker (Drop-Off)")
		fmt.Fprintln(h.out, "2) Open Locker for Drop-Off")
		fmt.Fprintln(h.out, "3) Pay & Pick-Up")
		fmt.Fprintln(h.out, "4) Back")
		switch h.ask("Choose: ") {
		case "1":
			h.handleDropOff()
		case "2":
			h.handleOpenForDropoff()
		case "3":
			h.handlePayAndPickup()
		case "4", "":
			return
		default:
			fmt.Fprintln(h.out, "Invalid choice.")
		}
	}
}

func (h *Handler) handleDropOff() {
	fmt.Fprintln(h.out, "\n-- Drop-Off --")
	phone := h.ask("Phone number (8-15 digits): ")

	fmt.Fprintln(h.out, "Service Types:")
	fmt.Fprintln(h.out, "1) Wash & Fold")
	fmt.Fprintln(h.out, "2) Dry Cleaning")
	var kind types.ServiceType
	switch h.ask("Choose: ") {
	case "1":
		kind = types.WashAndFold
	case "2":
		kind = types.DryCleaning
	default:
		fmt.Fprintln(h.out, "Cancelled.")
		return
	}

	ticket, err := h.engine.DropOff(phone, kind)
	if err != nil {
		h.report(err)
		return
	}
	fmt.Fprintf(h.out, "Drop-Off successful. Locker ID: %s | Code: %s\n", ticket.LockerID, ticket.Code)
	fmt.Fprintf(h.out, "Locker ID and code sent to phone %s\n", phone)
}

func (h *Handler) handleOpenForDropoff() {
	fmt.Fprintln(h.out, "\n-- Open Locker for Drop-Off --")
	lockerID := h.ask("Locker ID (e.g., L001): ")
	code := h.ask("6-digit code: ")

	at, err := h.engine.OpenForDropoff(lockerID, code)
	if err != nil {
		h.report(err)
		return
	}
	fmt.Fprintf(h.out, ">> Locker unlocked for drop-off. Time recorded: %s\n", at.Format("2006-01-02 15:04:05"))
}

func (h *Handler) handlePayAndPickup() {
	fmt.Fprintln(h.out, "\n-- Pay & Pick-Up --")
	lockerID := h.ask("Locker ID (e.g., L001): ")
	code := h.ask("6-digit code: ")

	quote, err := h.engine.QuotePickup(lockerID, code)
	if err != nil {
		h.report(err)
		return
	}
	fmt.Fprintf(h.out, "Service: %s (RM %s) + Locker fee: %d hour(s) x RM %s = RM %s\n",
		quote.Service, quote.ServiceFee.StringFixed(2), quote.Hours,
		quote.HourlyRate.StringFixed(2), quote.Total.StringFixed(2))

	if !strings.EqualFold(h.ask("Pay now? (y/n): "), "y") {
		fmt.Fprintln(h.out, "Payment cancelled.")
		return
	}

	receipt, err := h.engine.PayAndPickup(lockerID, code)
	if err != nil {
		h.report(err)
		return
	}
	fmt.Fprintf(h.out, ">> Locker unlocked. Please collect your bag.\n")
	fmt.Fprintf(h.out, "Paid RM %s. Transaction complete. Thank you!\n", receipt.Total.StringFixed(2))
}

func (h *Handler) adminLogin() {
	fmt.Fprintln(h.out, "\n-- Admin Login --")
	if err := h.engine.Login(h.ask("Admin password: ")); err != nil {
		fmt.Fprintln(h.out, "Access denied.")
		return
	}
	h.adminMenu()
	h.engine.Logout()
}

func (h *Handler) adminMenu() {
	for {
		fmt.Fprintln(h.out, "\n-- Admin Menu --")
		fmt.Fprintln(h.out, "1) Unlock a Locker (admin use)")
		fmt.Fprintln(h.out, "2) Set Locker Maintenance")
		fmt.Fprintln(h.out, "3) View Locker Status")
		fmt.Fprintln(h.out, "4) List Reservations")
		fmt.Fprintln(h.out, "5) Total Revenue")
		fmt.Fprintln(h.out, "6) Back")
		switch h.ask("Choose: ") {
		case "1":
			h.handleAdminUnlock()
		case "2":
			h.handleMaintenance()
		case "3":
			h.handleLockerStatus()
		case "4":
			h.handleListReservations()
		case "5":
			h.handleRevenue()
		case "6", "":
			return
		default:
			fmt.Fprintln(h.out, "Invalid choice.")
		}
	}
}

func (h *Handler) handleAdminUnlock() {
	lockerID := h.ask("Locker ID (e.g., L001): ")
	if err := h.engine.AdminUnlock(lockerID); err != nil {
		h.report(err)
		return
	}
	fmt.Fprintf(h.out, ">> Admin override: locker %s unlocked (status unchanged).\n", strings.ToUpper(lockerID))
}

func (h *Handler) handleMaintenance() {
	lockerID := h.ask("Locker ID (e.g., L001): ")
	under := strings.EqualFold(h.ask("Under maintenance? (y/n): "), "y")
	if err := h.engine.AdminSetMaintenance(lockerID, under); err != nil {
		h.report(err)
		return
	}
	if under {
		fmt.Fprintf(h.out, "Locker %s marked under maintenance.\n", strings.ToUpper(lockerID))
	} else {
		fmt.Fprintf(h.out, "Locker %s back in service and available.\n", strings.ToUpper(lockerID))
	}
}

func (h *Handler) handleLockerStatus() {
	details, err := h.engine.AdminLockerStatus()
	if err != nil {
		h.report(err)
		return
	}
	fmt.Fprintln(h.out, "\n-- Locker Status --")
	for _, d := range details {
		state := "AVAILABLE"
		if d.Locker.UnderMaintenance {
			state = "MAINTENANCE"
		} else if !d.Locker.Available {
			state = "OCCUPIED"
		}
		fmt.Fprintf(h.out, "%s | %s", d.Locker.ID, state)
		if d.Last != nil {
			fmt.Fprintf(h.out, " | Last: %s (%s) %s RM %s | Usage: %d hour(s)",
				d.Last.Phone, d.Last.Service, d.Last.Payment, d.Last.Amount.StringFixed(2), d.UsageHours)
		}
		fmt.Fprintln(h.out)
	}
}

func (h *Handler) handleListReservations() {
	reservations, err := h.engine.AdminListReservations()
	if err != nil {
		h.report(err)
		return
	}
	if len(reservations) == 0 {
		fmt.Fprintln(h.out, "No reservations yet.")
		return
	}
	fmt.Fprintln(h.out, "\n-- Reservations (newest first) --")
	for _, r := range reservations {
		fmt.Fprintf(h.out, "%s | %s | %s | Locker %s | Code %s | %s | RM %s\n",
			r.ID, r.Phone, r.Service, r.LockerID, r.Code, r.Payment, r.Amount.StringFixed(2))
	}
}

func (h *Handler) handleRevenue() {
	revenue, err := h.engine.TotalRevenue()
	if err != nil {
		h.report(err)
		return
	}
	fmt.Fprintf(h.out, "Total Revenue (all lockers): RM %s\n", revenue.StringFixed(2))
}

func (h *Handler) report(err error) {
	switch {
	case errors.Is(err, engine.ErrNoLockerAvailable):
		fmt.Fprintln(h.out, "No lockers available now.")
	case errors.Is(err, engine.ErrNotAuthenticated):
		fmt.Fprintln(h.out, "Admin login required.")
	default:
		fmt.Fprintln(h.out, "Error:", err)
	}
}

func (h *Handler) ask(msg string) string {
	fmt.Fprint(h.out, msg)
	if !h.in.Scan() {
		return ""
	}
	return strings.TrimSpace(h.in.Text())
}
