package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/orders/internal/api"
	"github.com/vladislavdragonenkov/orders/internal/client"
)

func (o *globalOptions) client() *client.Client {
	return client.New(o.server, client.WithReactive(o.reactive))
}

func newCreateCmd(opts *globalOptions) *cobra.Command {
	var (
		customer string
		date     string
		items    []string
		file     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an order",
		Long: "Create an order from flags or from a JSON file (--file, - for stdin).\n" +
			"Items are given as name:quantity:price, e.g. --item \"Test Product:2:75.00\".",
		Example: `  ordersctl create --customer "John Doe" --date 2025-12-04 --item "Test Product:2:75.00"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				req api.OrderRequest
				err error
			)
			if file != "" {
				req, err = readOrderFile(cmd.InOrStdin(), file)
			} else {
				req, err = buildOrderRequest(customer, date, items)
			}
			if err != nil {
				return err
			}
			resp, err := opts.client().CreateOrder(cmd.Context(), req)
			return printResponse(cmd, resp, err)
		},
	}

	cmd.Flags().StringVar(&customer, "customer", "", "customer name")
	cmd.Flags().StringVar(&date, "date", "", "order date YYYY-MM-DD (default: today on the server)")
	cmd.Flags().StringArrayVar(&items, "item", nil, "order item name:quantity:price (repeatable)")
	cmd.Flags().StringVar(&file, "file", "", "read the order JSON from a file")
	return cmd
}

func newGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := opts.client().GetOrder(cmd.Context(), id)
			return printResponse(cmd, resp, err)
		},
	}
}

func newListCmd(opts *globalOptions) *cobra.Command {
	var params client.ListParams

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders page by page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := opts.client().ListOrders(cmd.Context(), params)
			return printResponse(cmd, resp, err)
		},
	}

	addPageFlags(cmd, &params.Page, &params.Size)
	cmd.Flags().StringVar(&params.Sort, "sort", "", "sort field: id|customerName|orderDate|totalAmount|createdAt|updatedAt")
	cmd.Flags().StringVar(&params.Order, "order", "", "sort direction: asc|desc")
	cmd.Flags().StringVar(&params.CustomerName, "customer", "", "filter by customer name")
	cmd.Flags().StringVar(&params.From, "from", "", "order date from, YYYY-MM-DD")
	cmd.Flags().StringVar(&params.To, "to", "", "order date to, YYYY-MM-DD")
	return cmd
}

func newByCustomerCmd(opts *globalOptions) *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "by-customer <name>",
		Short: "List orders of one customer, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.client().ListOrdersByCustomer(cmd.Context(), args[0], page, size)
			return printResponse(cmd, resp, err)
		},
	}
	addPageFlags(cmd, &page, &size)
	return cmd
}

func newSpendingCmd(opts *globalOptions) *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "spending",
		Short: "Show total spending per customer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := opts.client().ListSpendingPerCustomer(cmd.Context(), page, size)
			return printResponse(cmd, resp, err)
		},
	}
	addPageFlags(cmd, &page, &size)
	return cmd
}

func newDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			resp, err := opts.client().DeleteOrder(cmd.Context(), id)
			return printResponse(cmd, resp, err)
		},
	}
}

func addPageFlags(cmd *cobra.Command, page, size *int) {
	cmd.Flags().IntVar(page, "page", 0, "page number, starting at 1 (default 1)")
	cmd.Flags().IntVar(size, "size", 0, "page size, at most 100 (default 20)")
}

// printResponse печатает тело ответа с отступами. Ответ с ошибкой тоже печатается,
// а команда завершается ошибкой.
func printResponse(cmd *cobra.Command, resp *client.Response, err error) error {
	var apiErr *client.APIError
	if err != nil && !errors.As(err, &apiErr) {
		return err
	}

	var out bytes.Buffer
	if indentErr := json.Indent(&out, resp.Body, "", "  "); indentErr != nil {
		out.Reset()
		out.Write(resp.Body)
	}
	out.WriteByte('\n')
	if _, writeErr := cmd.OutOrStdout().Write(out.Bytes()); writeErr != nil {
		return writeErr
	}
	return err
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid order id %q", raw)
	}
	return id, nil
}

func readOrderFile(stdin io.Reader, path string) (api.OrderRequest, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return api.OrderRequest{}, fmt.Errorf("read order file: %w", err)
	}

	var req api.OrderRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return api.OrderRequest{}, fmt.Errorf("parse order file: %w", err)
	}
	return req, nil
}

func buildOrderRequest(customer, date string, items []string) (api.OrderRequest, error) {
	req := api.OrderRequest{CustomerName: customer}
	if date != "" {
		d, err := api.ParseDate(date)
		if err != nil {
			return api.OrderRequest{}, fmt.Errorf("invalid --date: %w", err)
		}
		req.OrderDate = &d
	}

	if len(items) > 0 {
		req.Items = make([]api.OrderItemRequest, 0, len(items))
	}
	for _, raw := range items {
		item, err := parseItem(raw)
		if err != nil {
			return api.OrderRequest{}, err
		}
		req.Items = append(req.Items, item)
	}
	return req, nil
}

// parseItem разбирает name:quantity:price. Имя может содержать двоеточия.
func parseItem(raw string) (api.OrderItemRequest, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 3 {
		return api.OrderItemRequest{}, fmt.Errorf("invalid --item %q: want name:quantity:price", raw)
	}
	name := strings.Join(parts[:len(parts)-2], ":")

	quantity, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-2]))
	if err != nil {
		return api.OrderItemRequest{}, fmt.Errorf("invalid quantity in --item %q", raw)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return api.OrderItemRequest{}, fmt.Errorf("invalid price in --item %q", raw)
	}
	money := api.NewMoney(price)
	return api.OrderItemRequest{ProductName: name, Quantity: &quantity, Price: &money}, nil
}
