package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// ListGroupsWithClient returns all payee groups in their configured display
// order.
func ListGroupsWithClient(ctx context.Context, client *bigquery.Client) ([]*GroupRow, error) {
	q := client.Query(`
		SELECT
			group_id,
			user_id,
			group_name,
			brands,
			sort_order,
			created_ts,
			updated_ts
		FROM ` + tableRef(groupsTable) + `
		ORDER BY sort_order, group_name
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListGroups: query read: %w", err)
	}

	var rows []*GroupRow
	for {
		var r GroupRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListGroups: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

// InsertGroupWithClient inserts a new payee group.
func InsertGroupWithClient(ctx context.Context, client *bigquery.Client, row *GroupRow) error {
	q := client.Query(`
		INSERT ` + tableRef(groupsTable) + ` (
			group_id, user_id, group_name, brands, sort_order, created_ts
		)
		VALUES (
			@group_id, @user_id, @group_name, @brands, @sort_order, @created_ts
		)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "group_id", Value: row.GroupID},
		{Name: "user_id", Value: row.UserID},
		{Name: "group_name", Value: row.GroupName},
		{Name: "brands", Value: row.Brands},
		{Name: "sort_order", Value: row.SortOrder},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertGroup: %w", err)
	}
	return nil
}

// UpdateGroupWithClient replaces the name, brand list and sort position of an
// existing group.
func UpdateGroupWithClient(ctx context.Context, client *bigquery.Client, row *GroupRow) error {
	q := client.Query(`
		UPDATE ` + tableRef(groupsTable) + `
		SET group_name = @group_name,
		    brands = @brands,
		    sort_order = @sort_order,
		    updated_ts = CURRENT_TIMESTAMP()
		WHERE group_id = @group_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "group_name", Value: row.GroupName},
		{Name: "brands", Value: row.Brands},
		{Name: "sort_order", Value: row.SortOrder},
		{Name: "group_id", Value: row.GroupID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpdateGroup: %w", err)
	}
	return nil
}

// DeleteGroupWithClient deletes a payee group. Transactions whose brand was
// mapped through the group fall back to aggregating under the raw brand name
// on the next run.
func DeleteGroupWithClient(ctx context.Context, client *bigquery.Client, groupID string) error {
	q := client.Query(`
		DELETE FROM ` + tableRef(groupsTable) + `
		WHERE group_id = @group_id
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "group_id", Value: groupID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("DeleteGroup: %w", err)
	}
	return nil
}
