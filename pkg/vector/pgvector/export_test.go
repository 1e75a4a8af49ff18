package pgvector

import "context"

// Truncate removes every row from the driver's table.
func (d *Driver) Truncate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, "TRUNCATE "+d.table)
	return err
}
