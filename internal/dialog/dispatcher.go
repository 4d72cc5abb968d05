// Package dialog is the conversational state machine. One inbound
// message maps to one load-mutate-save cycle against the session
// store; everything between the store calls is synchronous.
package dialog

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/agencybot/whatsapp-catalog-bot/internal/cart"
	"github.com/agencybot/whatsapp-catalog-bot/internal/catalog"
	"github.com/agencybot/whatsapp-catalog-bot/internal/session"
)

// Config carries the tenant scope the dispatcher operates under.
// Agency identity is threaded through explicitly, never read from
// ambient state.
type Config struct {
	Agency     string
	AgencyID   int
	SessionTTL time.Duration
}

var greetings = map[string]bool{
	"hi":    true,
	"hello": true,
	"hey":   true,
	"hie":   true,
}

type reply struct {
	text    string
	buttons []string
}

// Dispatcher routes one normalized input plus the loaded session to
// the navigator, cart, or committer, and produces the outbound reply.
type Dispatcher struct {
	cfg       Config
	sessions  SessionStore
	catalog   catalog.Store
	nav       *catalog.Navigator
	committer Committer
	messenger Messenger
	locks     keyedMutex
}

func NewDispatcher(cfg Config, sessions SessionStore, store catalog.Store, committer Committer, messenger Messenger) *Dispatcher {
	return &Dispatcher{
		cfg:       cfg,
		sessions:  sessions,
		catalog:   store,
		nav:       catalog.NewNavigator(store),
		committer: committer,
		messenger: messenger,
	}
}

// Handle processes one inbound message. Processing for the same
// session key is serialized so duplicate webhook deliveries cannot
// race the load-then-save cycle. A reply is always attempted, even
// when a store call failed.
func (d *Dispatcher) Handle(ctx context.Context, from, input string) error {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return nil
	}

	key := session.Key(d.cfg.Agency, from)
	unlock := d.locks.lock(key)
	defer unlock()

	out := d.route(ctx, key, from, input)
	if err := d.messenger.Send(ctx, from, out.text, out.buttons...); err != nil {
		log.Printf("[dialog] send to %s failed: %v", from, err)
		return err
	}
	return nil
}

func (d *Dispatcher) route(ctx context.Context, key, from, input string) reply {
	// Global commands win in every state, session or not.
	if input == "exit" {
		return d.exit(ctx, key)
	}
	if greetings[input] {
		return d.greet(ctx, key, from)
	}

	sess, err := d.sessions.Load(ctx, key)
	if err != nil {
		log.Printf("[dialog] load %s failed: %v", key, err)
		return reply{text: msgFailure}
	}
	if sess == nil {
		return reply{text: msgNoSession}
	}

	switch input {
	case "list":
		return d.list(ctx, key, sess)
	case "back":
		return d.back(ctx, key, sess)
	case "cart":
		if sess.Step == session.StepProduct || sess.Step == session.StepQty || sess.Step == session.StepConfirmOrder {
			d.refresh(ctx, key)
			return reply{text: cart.Render(sess)}
		}
	}

	switch sess.Step {
	case session.StepCategory:
		return d.selectNode(ctx, key, sess, sess.Categories, input)
	case session.StepSubcategory:
		return d.selectNode(ctx, key, sess, sess.Subcategories, input)
	case session.StepProduct:
		return d.productStep(ctx, key, sess, input)
	case session.StepQty:
		return d.qtyStep(ctx, key, sess, input)
	case session.StepConfirmOrder:
		return d.confirmStep(ctx, key, sess, input)
	}
	return d.fallback(ctx, key)
}

// exit is idempotent: deleting a session that is not there still ends
// with the same reply.
func (d *Dispatcher) exit(ctx context.Context, key string) reply {
	if err := d.sessions.Clear(ctx, key); err != nil {
		log.Printf("[dialog] clear %s failed: %v", key, err)
	}
	return reply{text: msgSessionEnded}
}

// greet is a hard reset: any existing session is overwritten with a
// fresh one, never resumed.
func (d *Dispatcher) greet(ctx context.Context, key, from string) reply {
	customer, err := d.catalog.CustomerByContact(ctx, from)
	if err != nil {
		// Identity lookup is best-effort; the flow continues anonymously.
		log.Printf("[dialog] customer lookup for %s failed: %v", from, err)
		customer = nil
	}

	sess := session.New(d.cfg.Agency, from, customer)
	if err := d.save(ctx, key, sess); err != nil {
		log.Printf("[dialog] save %s failed: %v", key, err)
		return reply{text: msgFailure}
	}
	return reply{text: welcomeText(d.cfg.Agency), buttons: []string{"List", "Exit"}}
}

// list re-roots navigation from any step. The cart is untouched.
func (d *Dispatcher) list(ctx context.Context, key string, sess *session.Session) reply {
	roots, err := d.nav.Root(ctx, d.cfg.AgencyID)
	if err != nil {
		log.Printf("[dialog] root categories failed: %v", err)
		return reply{text: msgFailure}
	}
	if len(roots) == 0 {
		d.refresh(ctx, key)
		return reply{text: msgNoCategories}
	}

	sess.ShowCategories(roots)
	if err := d.save(ctx, key, sess); err != nil {
		log.Printf("[dialog] save %s failed: %v", key, err)
		return reply{text: msgFailure}
	}
	return reply{text: categoryMenu(roots)}
}

func (d *Dispatcher) back(ctx context.Context, key string, sess *session.Session) reply {
	switch sess.Step {
	case session.StepQty:
		// Abort the pending quantity and show the product menu again.
		sess.PendingProduct = nil
		return d.reenterProducts(ctx, key, sess, "")
	case session.StepCategory, session.StepSubcategory, session.StepProduct:
		parent, nodes, err := d.nav.Ascend(ctx, d.cfg.AgencyID, sess.CurrentParentID)
		if errors.Is(err, catalog.ErrNodeGone) {
			d.refresh(ctx, key)
			return reply{text: msgNodeGone}
		}
		if err != nil {
			log.Printf("[dialog] ascend from %d failed: %v", sess.CurrentParentID, err)
			return reply{text: msgFailure}
		}
		if parent == nil {
			if len(nodes) == 0 {
				d.refresh(ctx, key)
				return reply{text: msgNoCategories}
			}
			sess.ShowCategories(nodes)
			if err := d.save(ctx, key, sess); err != nil {
				log.Printf("[dialog] save %s failed: %v", key, err)
				return reply{text: msgFailure}
			}
			return reply{text: categoryMenu(nodes)}
		}
		sess.ShowSubcategories(parent.ID, nodes)
		if err := d.save(ctx, key, sess); err != nil {
			log.Printf("[dialog] save %s failed: %v", key, err)
			return reply{text: msgFailure}
		}
		return reply{text: subcategoryMenu(*parent, nodes)}
	}
	return d.fallback(ctx, key)
}

// selectNode handles a numeric pick at the category and subcategory
// steps. The same rule applies at every depth of the tree.
func (d *Dispatcher) selectNode(ctx context.Context, key string, sess *session.Session, menu session.Menu[catalog.Node], input string) reply {
	ordinal, err := strconv.Atoi(input)
	if err != nil {
		return d.fallback(ctx, key)
	}
	node, ok := menu.At(ordinal)
	if !ok {
		return d.fallback(ctx, key)
	}

	listing, err := d.nav.Descend(ctx, d.cfg.AgencyID, node, sess.TierID())
	if err != nil {
		log.Printf("[dialog] descend into %d failed: %v", node.ID, err)
		return reply{text: msgFailure}
	}

	if len(listing.Children) > 0 {
		sess.ShowSubcategories(node.ID, listing.Children)
		if err := d.save(ctx, key, sess); err != nil {
			log.Printf("[dialog] save %s failed: %v", key, err)
			return reply{text: msgFailure}
		}
		return reply{text: subcategoryMenu(node, listing.Children)}
	}

	if len(listing.Products) == 0 {
		// Empty menu: informative reply, no state advance.
		d.refresh(ctx, key)
		return reply{text: emptyProducts(node.Name)}
	}

	sess.ShowProducts(node.ID, listing.Products)
	if err := d.save(ctx, key, sess); err != nil {
		log.Printf("[dialog] save %s failed: %v", key, err)
		return reply{text: msgFailure}
	}
	return reply{text: productMenu(node.Name, listing.Products)}
}

func (d *Dispatcher) productStep(ctx context.Context, key string, sess *session.Session, input string) reply {
	if input == "order" {
		if len(sess.Cart) == 0 {
			d.refresh(ctx, key)
			return reply{text: cart.Render(sess)}
		}
		sess.AwaitConfirm()
		if err := d.save(ctx, key, sess); err != nil {
			log.Printf("[dialog] save %s failed: %v", key, err)
			return reply{text: msgFailure}
		}
		return reply{
			text:    cart.Render(sess) + "\n\nPlace this order?",
			buttons: []string{"Yes", "No"},
		}
	}

	ordinal, err := strconv.Atoi(input)
	if err != nil {
		return d.fallback(ctx, key)
	}
	product, ok := sess.Products.At(ordinal)
	if !ok {
		return d.fallback(ctx, key)
	}

	sess.AwaitQuantity(product)
	if err := d.save(ctx, key, sess); err != nil {
		log.Printf("[dialog] save %s failed: %v", key, err)
		return reply{text: msgFailure}
	}
	return reply{text: qtyPrompt(product.Name)}
}

func (d *Dispatcher) qtyStep(ctx context.Context, key string, sess *session.Session, input string) reply {
	qty, err := strconv.Atoi(input)
	if err != nil || qty < 1 {
		return d.fallback(ctx, key)
	}
	if sess.PendingProduct == nil {
		return d.fallback(ctx, key)
	}

	product := *sess.PendingProduct
	if err := cart.Add(sess, product, qty); err != nil {
		return d.fallback(ctx, key)
	}
	sess.PendingProduct = nil

	prefix := "Added *" + product.Name + "* x" + strconv.Itoa(qty) + " to your cart.\n\n"
	return d.reenterProducts(ctx, key, sess, prefix)
}

func (d *Dispatcher) confirmStep(ctx context.Context, key string, sess *session.Session, input string) reply {
	switch input {
	case "yes":
		number, err := d.committer.Commit(ctx, sess)
		if err != nil {
			// Nothing was persisted; cart and session stay intact for a retry.
			log.Printf("[dialog] order commit for %s failed: %v", key, err)
			d.refresh(ctx, key)
			return reply{text: msgOrderFailed, buttons: []string{"Yes", "No"}}
		}
		if err := d.sessions.Clear(ctx, key); err != nil {
			log.Printf("[dialog] clear %s after commit failed: %v", key, err)
		}
		return reply{text: orderPlaced(number)}
	case "no":
		return d.reenterProducts(ctx, key, sess, "Order cancelled. Your cart is kept.\n\n")
	}
	return d.fallback(ctx, key)
}

// reenterProducts re-fetches and re-renders the product menu for the
// session's current node. Ordinal maps are always rebuilt when shown,
// never reused from an earlier turn.
func (d *Dispatcher) reenterProducts(ctx context.Context, key string, sess *session.Session, prefix string) reply {
	node, err := d.catalog.NodeByID(ctx, sess.CurrentParentID)
	if err != nil {
		log.Printf("[dialog] node %d lookup failed: %v", sess.CurrentParentID, err)
		return reply{text: msgFailure}
	}
	if node == nil {
		d.refresh(ctx, key)
		return reply{text: msgNodeGone}
	}

	products, err := d.catalog.Products(ctx, d.cfg.AgencyID, node.ID, sess.TierID())
	if err != nil {
		log.Printf("[dialog] products under %d failed: %v", node.ID, err)
		return reply{text: msgFailure}
	}

	sess.ShowProducts(node.ID, products)
	if err := d.save(ctx, key, sess); err != nil {
		log.Printf("[dialog] save %s failed: %v", key, err)
		return reply{text: msgFailure}
	}
	return reply{text: prefix + productMenu(node.Name, products)}
}

// fallback: unrecognized input keeps the session alive and points the
// user back at the commands that always work.
func (d *Dispatcher) fallback(ctx context.Context, key string) reply {
	d.refresh(ctx, key)
	return reply{text: msgInvalid}
}

func (d *Dispatcher) save(ctx context.Context, key string, sess *session.Session) error {
	return d.sessions.Save(ctx, key, sess, d.cfg.SessionTTL)
}

// refresh slides the TTL; failures are logged, never allowed to
// suppress the reply.
func (d *Dispatcher) refresh(ctx context.Context, key string) {
	if err := d.sessions.RefreshTTL(ctx, key, d.cfg.SessionTTL); err != nil {
		log.Printf("[dialog] ttl refresh %s failed: %v", key, err)
	}
}
