package dialog

import (
	"fmt"
	"strings"

	"github.com/agencybot/whatsapp-catalog-bot/internal/catalog"
)

const (
	msgSessionEnded = "Session ended.\nType *Hi* to start again."
	msgNoSession    = "No active session.\nType *Hi* to start."
	msgInvalid      = "Invalid input.\nList | Exit"
	msgNoCategories = "No categories available right now.\nPlease try again later."
	msgNodeGone     = "That category is no longer available.\nType *List* to see categories."
	msgFailure      = "Something went wrong.\nPlease try again."
	msgOrderFailed  = "Could not place your order right now.\nReply *Yes* to try again or *No* to keep shopping."
)

func welcomeText(agency string) string {
	return fmt.Sprintf("Welcome to *%s* 👋\n\nType *List* to see categories.\nType *Exit* to leave.", agency)
}

func categoryMenu(nodes []catalog.Node) string {
	var b strings.Builder
	b.WriteString("📦 *Categories*\n\n")
	for i, n := range nodes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, n.Name)
	}
	b.WriteString("\nType category number.\nExit")
	return b.String()
}

func subcategoryMenu(parent catalog.Node, nodes []catalog.Node) string {
	var b strings.Builder
	if parent.ParentID == 0 {
		fmt.Fprintf(&b, "📂 *%s – Subcategories*\n\n", parent.Name)
	} else {
		fmt.Fprintf(&b, "📂 *%s*\n\n", parent.Name)
	}
	for i, n := range nodes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, n.Name)
	}
	b.WriteString("\nType number.\nBack | Exit")
	return b.String()
}

func productMenu(nodeName string, products []catalog.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 *Products – %s*\n\n", nodeName)
	for i, p := range products {
		fmt.Fprintf(&b, "%d. %s – ₹%.2f", i+1, p.Name, p.Price)
		if p.SchemeName != "" {
			fmt.Fprintf(&b, " 🎁 *%s*", p.SchemeName)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nReply product number\nCart | Order | Back | Exit")
	return b.String()
}

func emptyProducts(nodeName string) string {
	return fmt.Sprintf("No products under *%s* yet.\nList | Exit", nodeName)
}

func qtyPrompt(productName string) string {
	return fmt.Sprintf("How many *%s*?\nReply with quantity.\nBack | Exit", productName)
}

func orderPlaced(number string) string {
	return fmt.Sprintf("✅ Order placed!\nOrder number: *%s*\n\nType *Hi* to start a new order.", number)
}
