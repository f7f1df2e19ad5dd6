package sqlinline

const QUpsertSubscription = `--sql d703a3bf-753e-4779-bbfd-c3391e53ea5d
insert into subscriptions (user_id, tier, status, period_end_day, payment_ref, created_at, updated_at)
values ($1::text, $2::text, $3::text, $4::int, $5::text, now(), now())
on conflict (user_id) do update set
    tier = excluded.tier,
    status = excluded.status,
    period_end_day = excluded.period_end_day,
    payment_ref = excluded.payment_ref,
    updated_at = now();
`

const QSelectSubscription = `--sql 0c6994f9-ad10-4a05-8966-47bfe089d252
select user_id, tier, status, period_end_day, payment_ref, created_at, updated_at
from subscriptions
where user_id = $1::text
limit 1;
`

const QExpireLapsedSubscriptions = `--sql 948fe583-358e-4f14-8b8c-c62c05be598a
with lapsed as (
    update subscriptions
    set status = 'expired', updated_at = now()
    where status in ('active', 'cancelled')
      and period_end_day < $1::int
    returning user_id
)
update user_quotas q
set tier = 'free',
    watermark = true,
    retention_days = 30,
    free_expiry_day = $1::int + 365,
    updated_at = now()
from lapsed
where q.user_id = lapsed.user_id;
`
