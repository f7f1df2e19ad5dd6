package sqlinline

const QInsertInvoice = `--sql 12325fbd-9244-4c2e-aff8-d51de5bde8d8
insert into invoices (id, user_id, number, buyer_name, buyer_gstin, place_of_supply, currency,
                      lines, subtotal, tax_amount, total, watermark, status, created_at, updated_at)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::text,
        $8::jsonb, $9::bigint, $10::bigint, $11::bigint, $12::boolean, $13::text, now(), now());
`

const QSelectInvoiceByID = `--sql cde531bc-bc9a-4c24-877a-14791ebda030
select id, user_id, number, buyer_name, buyer_gstin, place_of_supply, currency,
       lines, subtotal, tax_amount, total, watermark, status, irn, ack_no, ack_date, created_at, updated_at
from invoices
where id = $1::uuid and user_id = $2::text
limit 1;
`

const QSelectInvoicesByUser = `--sql e60996a3-38c7-4ace-a193-93c3863f21b3
select id, user_id, number, buyer_name, buyer_gstin, place_of_supply, currency,
       lines, subtotal, tax_amount, total, watermark, status, irn, ack_no, ack_date, created_at, updated_at
from invoices
where user_id = $1::text
order by created_at desc
limit $2::int;
`

const QSetInvoiceIRN = `--sql 43f18f7c-7538-4887-b78d-bb8a6affeb29
update invoices
set irn = $3::text,
    ack_no = $4::text,
    ack_date = to_timestamp($5::bigint),
    status = 'IRN_SUBMITTED',
    updated_at = now()
where id = $1::uuid and user_id = $2::text;
`
