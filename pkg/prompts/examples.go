package prompts

// ExamplePair is one curated (question, SQL) pair conditioning the
// generator. The library covers the supported query shapes; phrasing mixes
// English and Indonesian to match real traffic.
type ExamplePair struct {
	Shape    string
	Question string
	SQL      string
}

// ExampleLibrary returns the fixed example-pair library in prompt order.
func ExampleLibrary() []ExamplePair {
	return []ExamplePair{
		{
			Shape:    "simple select",
			Question: "Show all customers",
			SQL:      "SELECT customer_id, name, email, country FROM customers",
		},
		{
			Shape:    "filter",
			Question: "Tampilkan pelanggan dari Indonesia",
			SQL:      "SELECT customer_id, name, email FROM customers WHERE country = 'ID'",
		},
		{
			Shape:    "aggregation",
			Question: "How many orders were placed in total?",
			SQL:      "SELECT COUNT(*) AS order_count FROM orders",
		},
		{
			Shape:    "join",
			Question: "Berapa total pembayaran per pelanggan?",
			SQL: "SELECT c.name, SUM(p.amount) AS total_paid " +
				"FROM customers c " +
				"JOIN orders o ON o.customer_id = c.customer_id " +
				"JOIN payments p ON p.order_id = o.order_id " +
				"GROUP BY c.name " +
				"ORDER BY total_paid DESC",
		},
		{
			Shape:    "null-safe join",
			Question: "Which customers have never placed an order?",
			SQL: "SELECT c.customer_id, c.name " +
				"FROM customers c " +
				"LEFT JOIN orders o ON o.customer_id = c.customer_id " +
				"WHERE o.order_id IS NULL",
		},
		{
			Shape:    "time window",
			Question: "Total penjualan 30 hari terakhir",
			SQL: "SELECT SUM(total_amount) AS total_sales " +
				"FROM orders " +
				"WHERE created_at >= CURRENT_DATE - INTERVAL '30 days'",
		},
	}
}
